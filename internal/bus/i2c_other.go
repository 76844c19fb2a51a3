//go:build !linux

package bus

// I2C is only available on Linux.
type I2C struct{}

func OpenI2C(path string, addr uint16) (*I2C, error) {
	return nil, ErrUnsupported
}

func (b *I2C) Write(p []byte) error        { return ErrUnsupported }
func (b *I2C) WriteRead(w, r []byte) error { return ErrUnsupported }
func (b *I2C) Close() error                { return nil }
