// Package pipeline runs the acquisition and transmission stages.
//
// The sampler fills one raw window while the transmitter drains the other.
// The two stages share nothing but the buffer pool: a window is only touched
// by the stage that last received its slot from the pool's queues.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sleepywoodpecker/ecg-stream/internal/affinity"
	"sleepywoodpecker/ecg-stream/internal/pool"
	"sleepywoodpecker/ecg-stream/internal/source"
)

// NoCPU disables pinning for a stage.
const NoCPU = -1

type Config struct {
	// Period between two sensor reads.
	Period time.Duration
	// SamplerCPU and TransmitterCPU pin each stage to a CPU, or NoCPU.
	SamplerCPU     int
	TransmitterCPU int
}

type Pipeline struct {
	cfg         Config
	pool        *pool.Pool
	sampler     *Sampler
	transmitter *Transmitter
	logger      *zap.Logger
}

// New builds the buffer pool and both stages. Nothing runs until Run.
func New(cfg Config, src source.SampleSource, channel Channel, logger *zap.Logger) *Pipeline {
	p := pool.New()
	return &Pipeline{
		cfg:         cfg,
		pool:        p,
		sampler:     NewSampler(src, p, cfg.Period, logger),
		transmitter: NewTransmitter(p, channel, logger),
		logger:      logger,
	}
}

func (p *Pipeline) Pool() *pool.Pool { return p.pool }

// Run starts both stages and blocks until both have returned. The stages
// stop when ctx is cancelled, or when either one fails.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg             sync.WaitGroup
		samplerErr     error
		transmitterErr error
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		p.pin("sampler", p.cfg.SamplerCPU)
		samplerErr = p.sampler.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		p.pin("transmitter", p.cfg.TransmitterCPU)
		transmitterErr = p.transmitter.Run(ctx)
	}()

	wg.Wait()
	return multierr.Combine(samplerErr, transmitterErr)
}

func (p *Pipeline) pin(stage string, cpu int) {
	if cpu == NoCPU {
		return
	}
	if err := affinity.Pin(cpu); err != nil {
		p.logger.Warn("[pipeline] error pinning stage, running unpinned", zap.Error(err), zap.String("stage", stage), zap.Int("cpu", cpu))
		return
	}
	p.logger.Info("[pipeline] stage pinned", zap.String("stage", stage), zap.Int("cpu", cpu))
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
