//go:build linux

package bus

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// ioctl request selecting the target address on an i2c-dev file.
const i2cSlave = 0x0703

// I2C is an i2c-dev character device bound to one target address.
type I2C struct {
	f    *os.File
	addr uint16
}

// OpenI2C opens path (for example /dev/i2c-1) and binds it to addr.
func OpenI2C(path string, addr uint16) (*I2C, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("bus: open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("bus: select address 0x%02X on %s: %w", addr, path, err)
	}
	return &I2C{f: f, addr: addr}, nil
}

func (b *I2C) Write(p []byte) error {
	n, err := b.f.Write(p)
	if err != nil {
		return fmt.Errorf("bus: i2c write to 0x%02X: %w", b.addr, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes to 0x%02X", ErrShortTransfer, n, len(p), b.addr)
	}
	return nil
}

// WriteRead writes w, then reads len(r) bytes in a separate transaction.
func (b *I2C) WriteRead(w, r []byte) error {
	if err := b.Write(w); err != nil {
		return err
	}
	if _, err := io.ReadFull(b.f, r); err != nil {
		return fmt.Errorf("bus: i2c read from 0x%02X: %w", b.addr, err)
	}
	return nil
}

func (b *I2C) Close() error {
	return b.f.Close()
}
