package receiver

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/multierr"

	"sleepywoodpecker/ecg-stream/internal/window"
)

// Recorder appends received windows to a mono 16-bit PCM WAV file.
type Recorder struct {
	f   *os.File
	enc *wav.Encoder
	buf *audio.IntBuffer
}

func NewRecorder(path string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("receiver: create recording: %w", err)
	}

	return &Recorder{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, window.ReducedSize),
			SourceBitDepth: 16,
		},
	}, nil
}

func (rec *Recorder) Write(w *window.Reduced) error {
	for i, s := range w {
		rec.buf.Data[i] = int(s)
	}
	if err := rec.enc.Write(rec.buf); err != nil {
		return fmt.Errorf("receiver: write recording: %w", err)
	}
	return nil
}

// Close finalises the WAV header and closes the file.
func (rec *Recorder) Close() error {
	return multierr.Combine(rec.enc.Close(), rec.f.Close())
}
