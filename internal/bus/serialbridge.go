package bus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Bridge framing. A request is
//
//	[bridgeStart, addr, len(w), len(r), w...]
//
// and the bridge answers with
//
//	[status, r..., '\r', '\n']
//
// where status 0 acknowledges the transfer and any other value is the bus
// error reported by the bridge firmware.
const (
	bridgeStart byte = 0xA5
	statusAck   byte = 0x00
)

const (
	maxTransfer    = 0xFF
	maxResyncBytes = 512
)

// DefaultReadTimeout bounds every read from the bridge.
const DefaultReadTimeout = 5 * time.Millisecond

var StopSequence = []byte{'\r', '\n'}

var (
	ErrBridgeTimeout   = errors.New("bus: serial bridge timed out")
	ErrNack            = errors.New("bus: serial bridge reported a bus error")
	ErrTransferTooLong = errors.New("bus: transfer longer than 255 bytes")
)

type OutOfSyncError struct {
	ByteSequence []byte
}

func (e *OutOfSyncError) Error() string {
	return fmt.Sprintf("[serialbridge] incorrect stop sequence detected: %v", e.ByteSequence)
}

// Port is the part of a serial port the bridge needs.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetDTR(dtr bool) error
}

// SerialBridge talks to an I2C target through a UART bridge. The bridge's
// DTR line doubles as the enable line of the analog front-end.
type SerialBridge struct {
	port     Port
	addr     uint16
	portName string
	logger   *zap.Logger
	req      []byte
	resp     []byte
}

// OpenSerialBridge opens portName at baudrate and prepares it for transfers
// to addr.
func OpenSerialBridge(portName string, baudrate int, addr uint16, logger *zap.Logger) (*SerialBridge, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("bus: open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("bus: set read timeout on %s: %w", portName, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("bus: reset input buffer on %s: %w", portName, err)
	}

	return NewSerialBridge(port, portName, addr, logger), nil
}

// NewSerialBridge wraps an already opened port. Reads from port must return
// (0, nil) when its read timeout expires.
func NewSerialBridge(port Port, portName string, addr uint16, logger *zap.Logger) *SerialBridge {
	return &SerialBridge{
		port:     port,
		addr:     addr,
		portName: portName,
		logger:   logger,
		req:      make([]byte, 0, 4+maxTransfer),
		resp:     make([]byte, 1+maxTransfer+len(StopSequence)),
	}
}

func (b *SerialBridge) Write(p []byte) error {
	return b.transfer(p, nil)
}

func (b *SerialBridge) WriteRead(w, r []byte) error {
	return b.transfer(w, r)
}

// SetFrontEnd drives the enable line of the analog front-end.
func (b *SerialBridge) SetFrontEnd(on bool) error {
	if err := b.port.SetDTR(on); err != nil {
		return fmt.Errorf("bus: set DTR on %s: %w", b.portName, err)
	}
	return nil
}

func (b *SerialBridge) Close() error {
	return b.port.Close()
}

func (b *SerialBridge) transfer(w, r []byte) error {
	if len(w) > maxTransfer || len(r) > maxTransfer {
		return ErrTransferTooLong
	}

	req := append(b.req[:0], bridgeStart, byte(b.addr), byte(len(w)), byte(len(r)))
	req = append(req, w...)

	written := 0
	for written < len(req) {
		n, err := b.port.Write(req[written:])
		if err != nil {
			return fmt.Errorf("bus: write to %s: %w", b.portName, err)
		}
		written += n
	}

	return b.readResponse(r)
}

func (b *SerialBridge) readResponse(r []byte) error {
	resp := b.resp[:1+len(r)+len(StopSequence)]

	count := 0
	for count < len(resp) {
		n, err := b.port.Read(resp[count:])
		if err != nil {
			return fmt.Errorf("bus: read from %s: %w", b.portName, err)
		}
		if n == 0 {
			// drop whatever arrives late so it cannot answer the next request
			if err := b.port.ResetInputBuffer(); err != nil {
				b.logger.Warn("[serialbridge] error resetting input buffer", zap.Error(err), zap.String("portName", b.portName))
			}
			return fmt.Errorf("%w after %d of %d bytes", ErrBridgeTimeout, count, len(resp))
		}
		count += n
	}

	// validate the packet by checking its last 2 bytes
	if !bytes.Equal(resp[len(resp)-len(StopSequence):], StopSequence) {
		byteSequenceCopy := make([]byte, len(resp))
		copy(byteSequenceCopy, resp)
		b.sync()

		return &OutOfSyncError{
			ByteSequence: byteSequenceCopy,
		}
	}

	if resp[0] != statusAck {
		return fmt.Errorf("%w: status 0x%02X at address 0x%02X", ErrNack, resp[0], b.addr)
	}

	copy(r, resp[1:1+len(r)])
	return nil
}

// sync discards input up to and including the next stop byte.
func (b *SerialBridge) sync() {
	b.logger.Warn("[serialbridge] resyncing serial port", zap.String("portName", b.portName))
	onebyte := make([]byte, 1)
	last := StopSequence[len(StopSequence)-1]

	for i := 0; i < maxResyncBytes; i++ {
		n, err := b.port.Read(onebyte)
		if err != nil {
			b.logger.Warn("[serialbridge] error while resyncing serial port", zap.Error(err), zap.String("portName", b.portName))
			return
		}
		if n == 0 || onebyte[0] == last {
			return
		}
	}
	b.logger.Warn("[serialbridge] no stop byte found while resyncing", zap.String("portName", b.portName), zap.Int("discarded", maxResyncBytes))
}
