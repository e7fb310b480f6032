package bmp180

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress     = errors.New("bmp180: address outside the 7-bit range")
	ErrInvalidMode        = errors.New("bmp180: invalid oversampling mode")
	ErrInvalidCalibration = errors.New("bmp180: invalid calibration coefficients")
	ErrShortRead          = errors.New("bmp180: short read")
)

// BusReadError is returned when a block read from the sensor fails or comes
// back with the wrong length.
type BusReadError struct {
	Register byte
	Len      int
	Err      error
}

func (e *BusReadError) Error() string {
	return fmt.Sprintf("bmp180: failed to read %d bytes from register %#02x: %v", e.Len, e.Register, e.Err)
}

func (e *BusReadError) Unwrap() error { return e.Err }

// BusWriteError is returned when a register write fails.
type BusWriteError struct {
	Register byte
	Value    byte
	Err      error
}

func (e *BusWriteError) Error() string {
	return fmt.Sprintf("bmp180: failed to write %#02x to register %#02x: %v", e.Value, e.Register, e.Err)
}

func (e *BusWriteError) Unwrap() error { return e.Err }
