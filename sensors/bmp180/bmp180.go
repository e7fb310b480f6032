package bmp180

import (
	"fmt"
	"sync"
	"time"
)

// Config holds the settings of a Device. The zero value selects single
// oversampling, the faithful raw pressure layout, time.Sleep and a private lock.
type Config struct {
	Mode Oversampling

	// CorrectRawPressure takes the third pressure byte from XLSB. When false
	// the MSB is reused in its place, which matches the readings of existing
	// deployments bit for bit.
	CorrectRawPressure bool

	// Sleep waits out a conversion. Defaults to time.Sleep.
	Sleep func(time.Duration)

	// Lock is held for a whole command/wait/read sequence. Handles on the same
	// bus address should share one.
	Lock sync.Locker
}

// Reading is one calibrated measurement.
type Reading struct {
	Temperature float64 // °C
	Pressure    float64 // Pa
	Altitude    float64 // m
}

// Device is a BMP180 on an I2C bus.
type Device struct {
	bus     Bus
	address byte
	cali    Calibration
	correct bool
	sleep   func(time.Duration)

	lock sync.Locker
	// mode is guarded by modeMu so Mode does not wait on a conversion.
	modeMu sync.Mutex
	mode   Oversampling
}

// New checks the address and mode, then reads the sensor's calibration.
func New(bus Bus, address byte, config Config) (*Device, error) {
	if address <= minAddress || address >= maxAddress {
		return nil, fmt.Errorf("%w: %#02x", ErrInvalidAddress, address)
	}
	if !config.Mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, config.Mode)
	}

	d := &Device{
		bus:     bus,
		address: address,
		correct: config.CorrectRawPressure,
		sleep:   config.Sleep,
		lock:    config.Lock,
		mode:    config.Mode,
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	if d.lock == nil {
		d.lock = new(sync.Mutex)
	}

	cali, err := LoadCalibration(bus, address)
	if err != nil {
		return nil, err
	}
	d.cali = cali
	return d, nil
}

// Address returns the I2C address of the sensor.
func (d *Device) Address() byte { return d.address }

// Calibration returns a copy of the coefficients read at construction.
func (d *Device) Calibration() Calibration { return d.cali }

// Mode returns the oversampling setting used for pressure conversions.
func (d *Device) Mode() Oversampling {
	d.modeMu.Lock()
	defer d.modeMu.Unlock()
	return d.mode
}

// SetMode changes the oversampling setting. An invalid mode leaves the current one in place.
func (d *Device) SetMode(mode Oversampling) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	d.modeMu.Lock()
	d.mode = mode
	d.modeMu.Unlock()
	return nil
}

// ReadRawTemperature runs one temperature conversion and returns UT.
func (d *Device) ReadRawTemperature() (uint16, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.readRawTemperature()
}

// ReadRawPressure runs one pressure conversion at mode and returns UP.
func (d *Device) ReadRawPressure(mode Oversampling) (uint32, error) {
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.readRawPressure(mode)
}

// Read runs a temperature conversion followed by a pressure conversion and
// compensates both. On error the Reading is always zero.
func (d *Device) Read() (Reading, error) {
	mode := d.Mode()

	d.lock.Lock()
	defer d.lock.Unlock()

	ut, err := d.readRawTemperature()
	if err != nil {
		return Reading{}, err
	}
	up, err := d.readRawPressure(mode)
	if err != nil {
		return Reading{}, err
	}
	comp, err := Compensate(d.cali, RawSample{UT: ut, UP: up, Mode: mode})
	if err != nil {
		return Reading{}, err
	}

	pressure := float64(comp.Pressure)
	return Reading{
		Temperature: float64(comp.Temperature) / 10,
		Pressure:    pressure,
		Altitude:    Altitude(pressure),
	}, nil
}

// Temperature returns a fresh temperature in °C.
func (d *Device) Temperature() (float64, error) {
	r, err := d.Read()
	if err != nil {
		return 0, err
	}
	return r.Temperature, nil
}

// Pressure returns a fresh pressure in Pa.
func (d *Device) Pressure() (float64, error) {
	r, err := d.Read()
	if err != nil {
		return 0, err
	}
	return r.Pressure, nil
}

// Altitude returns a fresh altitude in meters.
func (d *Device) Altitude() (float64, error) {
	r, err := d.Read()
	if err != nil {
		return 0, err
	}
	return r.Altitude, nil
}

func (d *Device) readRawTemperature() (uint16, error) {
	if err := writeRegister(d.bus, d.address, RegCtrlMeas, temperatureCommand()); err != nil {
		return 0, err
	}
	d.sleep(waitTemperature)
	data, err := readRegister(d.bus, d.address, RegData, 2)
	if err != nil {
		return 0, err
	}
	return uint16(data[0])<<8 | uint16(data[1]), nil
}

func (d *Device) readRawPressure(mode Oversampling) (uint32, error) {
	if err := writeRegister(d.bus, d.address, RegCtrlMeas, pressureCommand(mode)); err != nil {
		return 0, err
	}
	d.sleep(mode.Wait())
	data, err := readRegister(d.bus, d.address, RegData, 3)
	if err != nil {
		return 0, err
	}
	return combinePressure(data, mode, d.correct), nil
}

// combinePressure assembles UP from MSB, LSB and XLSB. Unless correct is set
// the MSB stands in for the XLSB, matching existing deployments.
func combinePressure(data []byte, mode Oversampling, correct bool) uint32 {
	msb, lsb, xlsb := uint32(data[0]), uint32(data[1]), uint32(data[2])
	if !correct {
		xlsb = msb
	}
	return (msb<<16 | lsb<<8 | xlsb) >> (8 - uint(mode))
}
