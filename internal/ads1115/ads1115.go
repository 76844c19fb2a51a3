// Package ads1115 drives a TI ADS1115 16-bit ADC over a register bus.
package ads1115

import (
	"encoding/binary"
	"fmt"

	"sleepywoodpecker/ecg-stream/internal/window"
)

// Bus is a register transport bound to the converter's address.
type Bus interface {
	Write(p []byte) error
	WriteRead(w, r []byte) error
}

type Device struct {
	bus    Bus
	config Config
	rx     [2]byte
}

func New(bus Bus, config Config) *Device {
	return &Device{bus: bus, config: config}
}

func (d *Device) Config() Config { return d.config }

// Configure writes the config word to the config register.
func (d *Device) Configure() error {
	word := d.config.Word()
	if err := d.bus.Write([]byte{RegConfig, byte(word >> 8), byte(word)}); err != nil {
		return fmt.Errorf("ads1115: write config 0x%04X: %w", word, err)
	}
	return nil
}

// ReadSample points at the conversion register and reads the latest result,
// transmitted MSB first.
func (d *Device) ReadSample() (window.Sample, error) {
	if err := d.bus.WriteRead([]byte{RegConversion}, d.rx[:]); err != nil {
		return 0, fmt.Errorf("ads1115: read conversion: %w", err)
	}
	return window.Sample(binary.BigEndian.Uint16(d.rx[:])), nil
}
