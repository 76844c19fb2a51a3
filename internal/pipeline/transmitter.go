package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sleepywoodpecker/ecg-stream/internal/pool"
	"sleepywoodpecker/ecg-stream/internal/resample"
	"sleepywoodpecker/ecg-stream/internal/window"
	"sleepywoodpecker/ecg-stream/internal/wire"
)

var ErrShortSend = errors.New("[transmitter] channel accepted fewer bytes than the frame holds")

// Transmitter reduces full windows and streams them over a Channel.
type Transmitter struct {
	pool    *pool.Pool
	channel Channel
	logger  *zap.Logger

	reduced window.Reduced
	frame   [wire.FrameSize]byte

	// owned by the Run goroutine
	sent         uint64
	sendFailures uint64
}

func NewTransmitter(p *pool.Pool, channel Channel, logger *zap.Logger) *Transmitter {
	return &Transmitter{
		pool:    p,
		channel: channel,
		logger:  logger,
	}
}

// Run sends full windows until ctx is cancelled. Every acquired window is
// released after its send attempt, whatever the outcome, so a failing
// network can stall acquisition by at most two windows.
func (t *Transmitter) Run(ctx context.Context) error {
	for {
		slot, err := t.pool.AcquireFull(ctx)
		if err != nil {
			if ctxDone(err) {
				t.logger.Info("[transmitter] received shutdown signal",
					zap.Uint64("windowsSent", t.sent),
					zap.Uint64("sendFailures", t.sendFailures),
				)
				return nil
			}
			return err
		}

		t.transmit(slot)

		if err := t.pool.Release(slot); err != nil {
			return fmt.Errorf("[transmitter] release slot %d: %w", slot, err)
		}
	}
}

// transmit makes a single send attempt. Failed or partial sends are dropped.
// TODO: finish partial writes instead of dropping them; a partial frame
// shifts every later frame boundary seen by the receiver.
func (t *Transmitter) transmit(slot pool.Slot) {
	resample.Window(&t.reduced, t.pool.Window(slot))

	if err := wire.Encode(t.frame[:], &t.reduced); err != nil {
		t.sendFailures++
		t.logger.Error("[transmitter] error encoding window", zap.Error(err), zap.Int("slot", int(slot)))
		return
	}

	n, err := t.channel.Send(t.frame[:])
	switch {
	case err != nil:
		t.sendFailures++
		t.logger.Warn("[transmitter] error sending window",
			zap.Error(err),
			zap.Int("slot", int(slot)),
			zap.Int("bytesSent", n),
		)
	case n != len(t.frame):
		t.sendFailures++
		t.logger.Warn("[transmitter] error sending window",
			zap.Error(ErrShortSend),
			zap.Int("slot", int(slot)),
			zap.Int("bytesSent", n),
			zap.Int("frameSize", len(t.frame)),
		)
	default:
		t.sent++
		t.logger.Debug("[transmitter] sent window", zap.Int("slot", int(slot)))
		if t.sent%statsInterval == 0 {
			t.logger.Info("[transmitter] stats",
				zap.Uint64("windowsSent", t.sent),
				zap.Uint64("sendFailures", t.sendFailures),
			)
		}
	}
}
