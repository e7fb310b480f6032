// Package sensors provides a stratux style interface to the barometric sensors used for pressure altitude.
package sensors

import (
	"errors"
	"sync"

	"github.com/b3nn0/altimeter/common"
	"github.com/b3nn0/altimeter/sensors/bmp180"
	"github.com/kidoman/embd"
)

// BMP180 represents a BMP180 sensor and implements the PressureReader interface.
// Every call runs a fresh conversion on the sensor; nothing is cached.
type BMP180 struct {
	sensor *bmp180.Device

	mu      sync.Mutex
	running bool
}

var errBMP180 = errors.New("BMP180 Error: BMP180 is not running")

// NewBMP180 connects to a BMP180 at address on the I2C bus and reads its calibration.
func NewBMP180(i2cbus *embd.I2CBus, address byte, config bmp180.Config) (*BMP180, error) {
	dev, err := bmp180.New(bmp180.EmbdBus{Bus: *i2cbus}, address, config)
	if err != nil {
		return nil, err
	}
	return &BMP180{sensor: dev, running: true}, nil
}

// Device returns the underlying driver.
func (bmp *BMP180) Device() *bmp180.Device {
	return bmp.sensor
}

func (bmp *BMP180) isRunning() bool {
	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	return bmp.running
}

// Read returns a full reading, pressure in Pa.
func (bmp *BMP180) Read() (bmp180.Reading, error) {
	if !bmp.isRunning() {
		return bmp180.Reading{}, errBMP180
	}
	return bmp.sensor.Read()
}

// Temperature returns the current temperature in degrees C measured by the BMP180
func (bmp *BMP180) Temperature() (float64, error) {
	if !bmp.isRunning() {
		return 0, errBMP180
	}
	return bmp.sensor.Temperature()
}

// Pressure returns the current pressure in mbar measured by the BMP180
func (bmp *BMP180) Pressure() (float64, error) {
	if !bmp.isRunning() {
		return 0, errBMP180
	}
	press, err := bmp.sensor.Pressure()
	if err != nil {
		return 0, err
	}
	return common.PascalToMillibar(press), nil
}

// Close stops the measurements of the BMP180. The sensor needs no shutdown
// command, it idles between conversions.
func (bmp *BMP180) Close() {
	bmp.mu.Lock()
	bmp.running = false
	bmp.mu.Unlock()
}
