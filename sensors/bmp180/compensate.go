package bmp180

// RawSample is one pair of uncompensated ADC readings.
type RawSample struct {
	UT   uint16
	UP   uint32
	Mode Oversampling
}

// Compensated is the fixed-point result of the compensation.
type Compensated struct {
	Temperature int32 // 0.1 °C
	Pressure    int64 // Pa
}

// Compensate applies the datasheet's integer compensation to raw.
// Signed intermediates are held in 64 bits so the products cannot overflow;
// B4 and B7 are unsigned 32-bit as in the reference code.
func Compensate(cal Calibration, raw RawSample) (Compensated, error) {
	oss := uint(raw.Mode & 0x03)

	// Temperature
	x1 := ((int64(raw.UT) - int64(cal.AC6)) * int64(cal.AC5)) >> 15
	if x1+int64(cal.MD) == 0 {
		return Compensated{}, ErrInvalidCalibration
	}
	x2 := floorDiv(int64(cal.MC)<<11, x1+int64(cal.MD))
	b5 := x1 + x2
	t := (b5 + 8) >> 4

	// Pressure
	b6 := b5 - 4000
	b6sq := (b6 * b6) >> 12
	x1 = (int64(cal.B2) * b6sq) >> 11
	x2 = (int64(cal.AC2) * b6) >> 11
	x3 := x1 + x2
	b3 := (((int64(cal.AC1)*4 + x3) << oss) + 2) >> 2
	x1 = (int64(cal.AC3) * b6) >> 13
	x2 = (int64(cal.B1) * b6sq) >> 16
	x3 = ((x1 + x2) + 2) >> 2
	b4 := (uint32(cal.AC4) * uint32(x3+32768)) >> 15
	if b4 == 0 {
		return Compensated{}, ErrInvalidCalibration
	}
	b7 := (raw.UP - uint32(b3)) * uint32(50000>>oss)

	var p int64
	if b7 < 0x80000000 {
		p = int64((b7 * 2) / b4)
	} else {
		p = int64((b7 / b4) * 2)
	}
	x1 = (p >> 8) * (p >> 8)
	x1 = (x1 * 3038) >> 16
	x2 = (-7357 * p) >> 16
	p += (x1 + x2 + 3791) >> 4

	return Compensated{Temperature: int32(t), Pressure: p}, nil
}

// floorDiv divides rounding toward negative infinity. Go's / truncates toward zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
