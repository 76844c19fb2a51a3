// Package receiver accepts the ECG stream, splits it back into windows and
// converts them to volts.
//
// The stream carries no framing, so a receiver that joins mid-frame or loses
// bytes stays misaligned until the connection is re-established.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/cwbudde/algo-vecmath"
	"github.com/eapache/queue"
	"go.uber.org/zap"

	"sleepywoodpecker/ecg-stream/internal/window"
	"sleepywoodpecker/ecg-stream/internal/wire"
)

const (
	// DefaultSampleRate is the rate of the reduced stream: 475 SPS * 720/950.
	DefaultSampleRate = 360
	DefaultHistory    = 8
	DefaultFullScale  = 4.096
)

type Config struct {
	// FullScale is the input voltage that reads as +32767.
	FullScale float64
	// History is how many recent windows Recent returns.
	History int
}

// Window is one received frame.
type Window struct {
	Seq      uint64
	Received time.Time
	Raw      window.Reduced
	Volts    []float64
}

type Receiver struct {
	cfg      Config
	logger   *zap.Logger
	recorder *Recorder
	gain     []float64
	scratch  []float64

	mu       sync.Mutex
	history  *queue.Queue
	received uint64
}

// New builds a receiver. recorder may be nil.
func New(cfg Config, recorder *Recorder, logger *zap.Logger) *Receiver {
	if cfg.FullScale <= 0 {
		cfg.FullScale = DefaultFullScale
	}
	if cfg.History <= 0 {
		cfg.History = DefaultHistory
	}

	gain := make([]float64, window.ReducedSize)
	for i := range gain {
		gain[i] = cfg.FullScale / math.MaxInt16
	}

	return &Receiver{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		gain:     gain,
		scratch:  make([]float64, window.ReducedSize),
		history:  queue.New(),
	}
}

// Serve accepts one connection at a time until ctx is cancelled.
func (r *Receiver) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	r.logger.Info("[receiver] waiting for a connection", zap.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("[receiver] received shutdown signal")
				return nil
			}
			return fmt.Errorf("receiver: accept: %w", err)
		}

		r.logger.Info("[receiver] connected", zap.String("remote", conn.RemoteAddr().String()))
		if err := r.HandleConn(ctx, conn); err != nil {
			r.logger.Warn("[receiver] connection ended with error", zap.Error(err), zap.String("remote", conn.RemoteAddr().String()))
		}
	}
}

// HandleConn reads frames from conn until it closes or ctx is cancelled.
func (r *Receiver) HandleConn(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	frame := make([]byte, wire.FrameSize)
	for {
		n, err := io.ReadFull(conn, frame)
		switch {
		case err == io.EOF:
			r.logger.Info("[receiver] connection closed by sender", zap.Uint64("windowsReceived", r.Received()))
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			r.logger.Warn("[receiver] discarding partial frame", zap.Int("bytes", n), zap.Int("frameSize", wire.FrameSize))
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiver: read frame: %w", err)
		}

		if err := r.Accept(frame); err != nil {
			return err
		}
	}
}

// Accept decodes one frame and records it.
func (r *Receiver) Accept(frame []byte) error {
	w := &Window{Received: time.Now()}
	if err := wire.Decode(&w.Raw, frame); err != nil {
		return err
	}

	for i, s := range w.Raw {
		r.scratch[i] = float64(s)
	}
	w.Volts = make([]float64, window.ReducedSize)
	vecmath.MulBlock(w.Volts, r.scratch, r.gain)

	if r.recorder != nil {
		if err := r.recorder.Write(&w.Raw); err != nil {
			r.logger.Warn("[receiver] error recording window", zap.Error(err))
		}
	}

	r.mu.Lock()
	r.received++
	w.Seq = r.received
	r.history.Add(w)
	for r.history.Length() > r.cfg.History {
		r.history.Remove()
	}
	r.mu.Unlock()

	lo, hi := bounds(w.Volts)
	r.logger.Info("[receiver] window received",
		zap.Uint64("seq", w.Seq),
		zap.Float64("minVolts", lo),
		zap.Float64("maxVolts", hi),
	)
	return nil
}

// Recent returns the retained windows, oldest first.
func (r *Receiver) Recent() []*Window {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Window, 0, r.history.Length())
	for i := 0; i < r.history.Length(); i++ {
		out = append(out, r.history.Get(i).(*Window))
	}
	return out
}

func (r *Receiver) Received() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received
}

func bounds(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
