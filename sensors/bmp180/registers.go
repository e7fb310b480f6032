// Package bmp180 provides a driver for Bosch's BMP180 digital temperature & pressure sensor.
// The datasheet can be found here: https://cdn-shop.adafruit.com/datasheets/BST-BMP180-DS000-09.pdf
package bmp180

import "time"

const Address byte = 0x77 // default I2C address

// Valid 7-bit addresses lie strictly between these two.
const (
	minAddress byte = 0x07
	maxAddress byte = 0x78
)

const (
	RegCali        byte = 0xAA // start of the 22 byte calibration block, AC1 through MD
	RegCtrlMeas    byte = 0xF4 // measurement control register
	RegData        byte = 0xF6 // start of the ADC output registers (MSB, LSB, XLSB)
	calibrationLen      = 22
)

const (
	CmdStartConversion byte = 0x20 // sco bit
	CmdTemperature     byte = 0x0E
	CmdPressure        byte = 0x14 // or'd with the oversampling setting shifted into bits 7:6
)

// Oversampling selects the pressure resolution. Higher settings are less noisy
// but take longer to convert.
type Oversampling byte

const (
	Sampling1X Oversampling = iota // ultra low power
	Sampling2X                     // standard
	Sampling4X                     // high resolution
	Sampling8X                     // ultra high resolution
)

// Conversion times from the datasheet.
const waitTemperature = 4500 * time.Microsecond

var waitPressure = [...]time.Duration{
	Sampling1X: 4500 * time.Microsecond,
	Sampling2X: 7500 * time.Microsecond,
	Sampling4X: 13500 * time.Microsecond,
	Sampling8X: 25500 * time.Microsecond,
}

// Valid reports whether o is one of the four oversampling settings.
func (o Oversampling) Valid() bool {
	return o <= Sampling8X
}

// Wait returns the pressure conversion time for o. It panics unless o is Valid.
func (o Oversampling) Wait() time.Duration {
	return waitPressure[o]
}

func (o Oversampling) String() string {
	switch o {
	case Sampling1X:
		return "1x"
	case Sampling2X:
		return "2x"
	case Sampling4X:
		return "4x"
	case Sampling8X:
		return "8x"
	}
	return "invalid"
}

func temperatureCommand() byte {
	return CmdStartConversion | CmdTemperature
}

func pressureCommand(o Oversampling) byte {
	return CmdStartConversion | byte(o)<<6 | CmdPressure
}
