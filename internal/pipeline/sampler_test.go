package pipeline

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/ecg-stream/internal/pool"
	"sleepywoodpecker/ecg-stream/internal/window"
)

func runSampler(t *testing.T, s *Sampler) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func stopSampler(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil on shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sampler did not stop after cancel")
	}
}

func takeFull(t *testing.T, p *pool.Pool) pool.Slot {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slot, err := p.AcquireFull(ctx)
	if err != nil {
		t.Fatalf("AcquireFull() error = %v", err)
	}
	return slot
}

func TestSamplerBlocksWhenConsumerStalls(t *testing.T) {
	t.Parallel()

	p := pool.New()
	src := &rampSource{}
	cancel, done := runSampler(t, NewSampler(src, p, 0, zap.NewNop()))

	waitFor(t, "two published windows", func() bool { return p.FullLen() == pool.NumSlots })

	// give an overwriting sampler time to show itself
	time.Sleep(50 * time.Millisecond)

	if got := src.reads.Load(); got != 2*window.RawSize {
		t.Fatalf("reads = %d, want %d (sampler must block on a free window)", got, 2*window.RawSize)
	}
	if p.FreeLen() != 0 {
		t.Fatalf("FreeLen() = %d, want 0", p.FreeLen())
	}

	for k := 0; k < pool.NumSlots; k++ {
		slot := takeFull(t, p)
		if slot != pool.Slot(k) {
			t.Errorf("window %d in slot %d, want slot %d", k, slot, k)
		}
		w := p.Window(slot)
		for j, v := range w {
			if want := window.Sample(k*window.RawSize + j); v != want {
				t.Fatalf("window %d sample %d = %d, want %d", k, j, v, want)
			}
		}
	}

	stopSampler(t, cancel, done)
}

func TestSamplerSkipsFailedReads(t *testing.T) {
	t.Parallel()

	const failures = 500

	p := pool.New()
	src := &rampSource{failFirst: failures}
	logger, logs := newObservedLogger()
	cancel, done := runSampler(t, NewSampler(src, p, 0, logger))

	slot := takeFull(t, p)
	w := p.Window(slot)
	for j, v := range w {
		if v != window.Sample(j) {
			t.Fatalf("sample %d = %d, want %d", j, v, j)
		}
	}

	stopSampler(t, cancel, done)

	if got := logs.FilterMessage("[sampler] error reading sample").Len(); got != failures {
		t.Errorf("read failure warnings = %d, want %d", got, failures)
	}
	if got := src.reads.Load(); got < failures+window.RawSize {
		t.Errorf("reads = %d, want at least %d", got, failures+window.RawSize)
	}
}

func TestSamplerContinuesAfterConfigureError(t *testing.T) {
	t.Parallel()

	p := pool.New()
	src := &rampSource{configErr: errRead}
	logger, logs := newObservedLogger()
	cancel, done := runSampler(t, NewSampler(src, p, 0, logger))

	takeFull(t, p)
	stopSampler(t, cancel, done)

	if got := logs.FilterMessage("[sampler] error configuring sample source, continuing").Len(); got != 1 {
		t.Errorf("configure warnings = %d, want 1", got)
	}
}

func TestSamplerStopsWhileBlocked(t *testing.T) {
	t.Parallel()

	p := pool.New()
	ctx := context.Background()
	// hold both windows so the sampler blocks before its first read
	for i := 0; i < pool.NumSlots; i++ {
		if _, err := p.AcquireFree(ctx); err != nil {
			t.Fatal(err)
		}
	}

	src := &rampSource{}
	cancel, done := runSampler(t, NewSampler(src, p, time.Millisecond, zap.NewNop()))

	time.Sleep(20 * time.Millisecond)
	if got := src.reads.Load(); got != 0 {
		t.Fatalf("reads = %d, want 0 while no window is free", got)
	}

	stopSampler(t, cancel, done)
}

func TestSamplerHoldsAbsoluteCadence(t *testing.T) {
	t.Parallel()

	const (
		period  = 3 * time.Millisecond
		latency = 2 * time.Millisecond
		reads   = 60
	)

	p := pool.New()
	src := &rampSource{latency: latency, stamps: make(chan time.Time, reads)}
	cancel, done := runSampler(t, NewSampler(src, p, period, zap.NewNop()))

	var first, last time.Time
	for i := 0; i < reads; i++ {
		select {
		case ts := <-src.stamps:
			if i == 0 {
				first = ts
			}
			last = ts
		case <-time.After(5 * time.Second):
			t.Fatal("sampler stalled")
		}
	}
	stopSampler(t, cancel, done)

	elapsed := last.Sub(first)
	if lower := (reads-1)*period - 5*time.Millisecond; elapsed < lower {
		t.Errorf("%d reads took %v, want at least %v", reads, elapsed, lower)
	}
	// a relative delay would add the read latency to every period
	if upper := (reads - 1) * (period + latency); elapsed >= upper {
		t.Errorf("%d reads took %v, want less than %v", reads, elapsed, upper)
	}
}
