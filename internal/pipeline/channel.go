package pipeline

import (
	"fmt"
	"io"
	"net"
	"time"
)

// Channel is an ordered, reliable byte stream that is already connected.
// Send reports how many bytes of p were accepted.
type Channel interface {
	Send(p []byte) (int, error)
}

// ConnChannel sends over a network connection, bounding every send with a
// write deadline.
type ConnChannel struct {
	conn    net.Conn
	timeout time.Duration
}

// NewConnChannel wraps conn. A timeout of zero leaves sends unbounded.
func NewConnChannel(conn net.Conn, timeout time.Duration) *ConnChannel {
	return &ConnChannel{conn: conn, timeout: timeout}
}

func (c *ConnChannel) Send(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, fmt.Errorf("set write deadline: %w", err)
		}
	}
	return c.conn.Write(p)
}

// WriterChannel sends to any io.Writer.
type WriterChannel struct {
	w io.Writer
}

func NewWriterChannel(w io.Writer) *WriterChannel {
	return &WriterChannel{w: w}
}

func (c *WriterChannel) Send(p []byte) (int, error) {
	return c.w.Write(p)
}
