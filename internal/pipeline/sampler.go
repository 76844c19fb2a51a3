package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/ecg-stream/internal/pool"
	"sleepywoodpecker/ecg-stream/internal/source"
	"sleepywoodpecker/ecg-stream/internal/window"
)

// statsInterval is the number of windows between two stats lines.
const statsInterval = 30

// Sampler reads the sensor at a fixed cadence and fills raw windows.
type Sampler struct {
	source source.SampleSource
	pool   *pool.Pool
	period time.Duration
	logger *zap.Logger

	// owned by the Run goroutine
	samplesRead  uint64
	readFailures uint64
	published    uint64
}

func NewSampler(src source.SampleSource, p *pool.Pool, period time.Duration, logger *zap.Logger) *Sampler {
	return &Sampler{
		source: src,
		pool:   p,
		period: period,
		logger: logger,
	}
}

// Run configures the source once, then samples until ctx is cancelled.
//
// Read n is scheduled for origin + n*period, so time spent on the bus or
// waiting for a free window does not push later samples back. A failed read
// is logged and leaves the write cursor where it was.
func (s *Sampler) Run(ctx context.Context) error {
	if err := s.source.Configure(); err != nil {
		s.logger.Warn("[sampler] error configuring sample source, continuing", zap.Error(err))
	} else {
		s.logger.Info("[sampler] sample source configured", zap.Duration("period", s.period))
	}

	slot, err := s.pool.AcquireFree(ctx)
	if err != nil {
		return s.stop(err)
	}
	buf := s.pool.Window(slot)
	cursor := 0

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	origin := time.Now()
	for iteration := int64(1); ; iteration++ {
		sample, err := s.source.ReadSample()
		if err != nil {
			s.readFailures++
			s.logger.Warn("[sampler] error reading sample",
				zap.Error(err),
				zap.Int("slot", int(slot)),
				zap.Int("cursor", cursor),
			)
		} else {
			buf[cursor] = sample
			cursor++
			s.samplesRead++
		}

		if cursor == window.RawSize {
			if err := s.pool.PublishFull(ctx, slot); err != nil {
				return s.stop(err)
			}
			s.published++
			s.logger.Debug("[sampler] published window", zap.Int("slot", int(slot)))
			if s.published%statsInterval == 0 {
				s.logStats()
			}

			// blocks while the transmitter still holds both windows
			slot, err = s.pool.AcquireFree(ctx)
			if err != nil {
				return s.stop(err)
			}
			buf = s.pool.Window(slot)
			cursor = 0
		}

		if err := sleepUntil(ctx, timer, origin.Add(time.Duration(iteration)*s.period)); err != nil {
			return s.stop(err)
		}
	}
}

func (s *Sampler) logStats() {
	s.logger.Info("[sampler] stats",
		zap.Uint64("samplesRead", s.samplesRead),
		zap.Uint64("readFailures", s.readFailures),
		zap.Uint64("windowsPublished", s.published),
	)
}

func (s *Sampler) stop(err error) error {
	if ctxDone(err) {
		s.logger.Info("[sampler] received shutdown signal")
		s.logStats()
		return nil
	}
	return err
}

// sleepUntil waits for deadline or ctx, whichever comes first. A deadline
// already in the past returns at once.
func sleepUntil(ctx context.Context, timer *time.Timer, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
	}

	timer.Reset(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
