package bmp180

import (
	"encoding/binary"
	"fmt"
)

// Calibration holds the factory coefficients stored in the sensor's EEPROM.
type Calibration struct {
	AC1, AC2, AC3 int16
	AC4, AC5, AC6 uint16
	B1, B2        int16
	MB, MC, MD    int16
}

// LoadCalibration reads and decodes the calibration block of the sensor at addr.
func LoadCalibration(bus Bus, addr byte) (Calibration, error) {
	buffer, err := readRegister(bus, addr, RegCali, calibrationLen)
	if err != nil {
		return Calibration{}, err
	}
	return DecodeCalibration(buffer)
}

// DecodeCalibration decodes the 22 byte big-endian calibration block.
// Every word read as 0x0000 or 0xFFFF means the EEPROM read went wrong.
func DecodeCalibration(buffer []byte) (Calibration, error) {
	if len(buffer) != calibrationLen {
		return Calibration{}, fmt.Errorf("%w: got %d calibration bytes, want %d", ErrShortRead, len(buffer), calibrationLen)
	}

	var words [calibrationLen / 2]uint16
	for i := range words {
		words[i] = binary.BigEndian.Uint16(buffer[2*i:])
		if words[i] == 0x0000 || words[i] == 0xFFFF {
			return Calibration{}, fmt.Errorf("%w: word %d at register %#02x is %#04x",
				ErrInvalidCalibration, i, RegCali+byte(2*i), words[i])
		}
	}

	return Calibration{
		AC1: int16(words[0]),
		AC2: int16(words[1]),
		AC3: int16(words[2]),
		AC4: words[3],
		AC5: words[4],
		AC6: words[5],
		B1:  int16(words[6]),
		B2:  int16(words[7]),
		MB:  int16(words[8]),
		MC:  int16(words[9]),
		MD:  int16(words[10]),
	}, nil
}
