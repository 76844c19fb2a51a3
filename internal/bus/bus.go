// Package bus provides register transports for sensors: the Linux i2c-dev
// interface and a serial-attached I2C bridge.
package bus

import "errors"

var (
	ErrUnsupported   = errors.New("bus: not supported on this platform")
	ErrShortTransfer = errors.New("bus: short transfer")
)
