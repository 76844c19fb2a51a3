package pipeline

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sleepywoodpecker/ecg-stream/internal/window"
)

var errRead = errors.New("i2c nack")

// rampSource returns 0, 1, 2, ... from its successful reads. The first
// failFirst reads fail. Only the sampler goroutine calls its methods.
type rampSource struct {
	failFirst int64
	configErr error
	latency   time.Duration

	reads atomic.Int64
	next  window.Sample

	// stamp of every read, for cadence checks
	stamps chan time.Time
}

func (s *rampSource) Configure() error { return s.configErr }

func (s *rampSource) ReadSample() (window.Sample, error) {
	n := s.reads.Add(1)
	if s.stamps != nil {
		select {
		case s.stamps <- time.Now():
		default:
		}
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	if n <= s.failFirst {
		return 0, errRead
	}
	v := s.next
	s.next++
	return v, nil
}

// captureChannel keeps a copy of every frame it is given.
type captureChannel struct {
	frames chan []byte
}

func newCaptureChannel(size int) *captureChannel {
	return &captureChannel{frames: make(chan []byte, size)}
}

func (c *captureChannel) Send(p []byte) (int, error) {
	frame := append([]byte(nil), p...)
	select {
	case c.frames <- frame:
	default:
	}
	return len(p), nil
}

// scriptedChannel returns a fixed result for every send.
type scriptedChannel struct {
	n     int
	err   error
	calls atomic.Int64
}

func (c *scriptedChannel) Send(p []byte) (int, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
