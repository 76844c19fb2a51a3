package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"sleepywoodpecker/ecg-stream/internal/window"
)

var (
	ErrNotWav     = errors.New("source: not a valid WAV file")
	ErrEmptyTrack = errors.New("source: WAV file holds no samples")
)

// Replay serves the first channel of a PCM WAV recording as ADC samples,
// looping back to the start when it runs out. The file's own sample rate is
// ignored; the sampler sets the pace.
type Replay struct {
	samples []window.Sample
	pos     int
}

// NewReplay decodes the whole recording up front. Samples of other bit
// depths are shifted to 16 bits.
func NewReplay(r io.ReadSeeker) (*Replay, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWav
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("source: decode WAV: %w", err)
	}

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	depth := int(dec.BitDepth)

	samples := make([]window.Sample, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, to16(buf.Data[i], depth))
	}
	if len(samples) == 0 {
		return nil, ErrEmptyTrack
	}

	return &Replay{samples: samples}, nil
}

// Configure does nothing; a recording needs no setup.
func (r *Replay) Configure() error { return nil }

func (r *Replay) ReadSample() (window.Sample, error) {
	s := r.samples[r.pos]
	r.pos++
	if r.pos == len(r.samples) {
		r.pos = 0
	}
	return s, nil
}

// Len returns the number of samples in one pass over the recording.
func (r *Replay) Len() int { return len(r.samples) }

func to16(v, depth int) window.Sample {
	switch {
	case depth > 16:
		return window.Sample(v >> (depth - 16))
	case depth == 8:
		// 8-bit WAV is unsigned
		return window.Sample((v - 128) << 8)
	default:
		return window.Sample(v)
	}
}
