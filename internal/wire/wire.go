// Package wire encodes reduced windows into the fixed-size stream frames
// sent to the receiver.
//
// A frame is exactly FrameSize bytes: window.ReducedSize signed 16-bit
// samples in little-endian order, with no length prefix and no delimiter.
// Receivers must know the frame size out of band.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"sleepywoodpecker/ecg-stream/internal/window"
)

const (
	BytesPerSample = 2
	FrameSize      = window.ReducedSize * BytesPerSample
)

// ByteOrder is the sample byte order on the wire.
var ByteOrder = binary.LittleEndian

var ErrFrameSize = errors.New("wire: frame buffer has the wrong size")

// Encode writes w into dst, which must be exactly FrameSize bytes long.
func Encode(dst []byte, w *window.Reduced) error {
	if len(dst) != FrameSize {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameSize, len(dst), FrameSize)
	}
	for i, s := range w {
		ByteOrder.PutUint16(dst[i*BytesPerSample:], uint16(s))
	}
	return nil
}

// Decode reads one frame from src into w.
func Decode(w *window.Reduced, src []byte) error {
	if len(src) != FrameSize {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameSize, len(src), FrameSize)
	}
	for i := range w {
		w[i] = window.Sample(ByteOrder.Uint16(src[i*BytesPerSample:]))
	}
	return nil
}
