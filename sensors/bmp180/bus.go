package bmp180

import "github.com/kidoman/embd"

// Bus is the register level transport the driver needs.
type Bus interface {
	WriteByte(addr, reg, value byte) error
	ReadBlock(addr, reg byte, n int) ([]byte, error)
}

// EmbdBus adapts an embd I2C bus to Bus.
type EmbdBus struct {
	Bus embd.I2CBus
}

func (b EmbdBus) WriteByte(addr, reg, value byte) error {
	return b.Bus.WriteByteToReg(addr, reg, value)
}

func (b EmbdBus) ReadBlock(addr, reg byte, n int) ([]byte, error) {
	data := make([]byte, n)
	if err := b.Bus.ReadFromReg(addr, reg, data); err != nil {
		return nil, err
	}
	return data, nil
}

func readRegister(bus Bus, addr, reg byte, n int) ([]byte, error) {
	data, err := bus.ReadBlock(addr, reg, n)
	if err != nil {
		return nil, &BusReadError{Register: reg, Len: n, Err: err}
	}
	if len(data) != n {
		return nil, &BusReadError{Register: reg, Len: n, Err: ErrShortRead}
	}
	return data, nil
}

func writeRegister(bus Bus, addr, reg, value byte) error {
	if err := bus.WriteByte(addr, reg, value); err != nil {
		return &BusWriteError{Register: reg, Value: value, Err: err}
	}
	return nil
}
