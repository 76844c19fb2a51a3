package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewQueuesEverySlotFree(t *testing.T) {
	t.Parallel()

	p := New()
	if p.FreeLen() != NumSlots {
		t.Fatalf("FreeLen() = %d, want %d", p.FreeLen(), NumSlots)
	}
	if p.FullLen() != 0 {
		t.Fatalf("FullLen() = %d, want 0", p.FullLen())
	}

	ctx := context.Background()
	for want := Slot(0); want < NumSlots; want++ {
		got, err := p.AcquireFree(ctx)
		if err != nil {
			t.Fatalf("AcquireFree() error = %v", err)
		}
		if got != want {
			t.Errorf("AcquireFree() = %d, want %d", got, want)
		}
	}
}

func TestAcquireFreeBlocksWhenExhausted(t *testing.T) {
	t.Parallel()

	p := New()
	ctx := context.Background()
	for i := 0; i < NumSlots; i++ {
		if _, err := p.AcquireFree(ctx); err != nil {
			t.Fatalf("AcquireFree() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	_, err := p.AcquireFree(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("AcquireFree() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestAcquireFullBlocksWhenEmpty(t *testing.T) {
	t.Parallel()

	p := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.AcquireFull(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("AcquireFull() error = %v, want %v", err, context.Canceled)
	}
}

func TestInvalidSlot(t *testing.T) {
	t.Parallel()

	p := New()
	ctx := context.Background()

	for _, slot := range []Slot{-1, NumSlots, 7} {
		if err := p.PublishFull(ctx, slot); !errors.Is(err, ErrInvalidSlot) {
			t.Errorf("PublishFull(%d) error = %v, want %v", slot, err, ErrInvalidSlot)
		}
		if err := p.Release(slot); !errors.Is(err, ErrInvalidSlot) {
			t.Errorf("Release(%d) error = %v, want %v", slot, err, ErrInvalidSlot)
		}
	}
}

func TestReleaseOverflow(t *testing.T) {
	t.Parallel()

	p := New()
	if err := p.Release(0); !errors.Is(err, ErrPoolOverflow) {
		t.Fatalf("Release() error = %v, want %v", err, ErrPoolOverflow)
	}
	if p.FreeLen() != NumSlots {
		t.Fatalf("FreeLen() = %d, want %d", p.FreeLen(), NumSlots)
	}
}

func TestHandOffAlternates(t *testing.T) {
	t.Parallel()

	p := New()
	ctx := context.Background()

	slot, err := p.AcquireFree(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var published []Slot
	for i := 0; i < 8; i++ {
		if err := p.PublishFull(ctx, slot); err != nil {
			t.Fatal(err)
		}
		published = append(published, slot)

		next, err := p.AcquireFree(ctx)
		if err != nil {
			t.Fatal(err)
		}

		consumed, err := p.AcquireFull(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if err := p.Release(consumed); err != nil {
			t.Fatal(err)
		}
		slot = next
	}

	for i, s := range published {
		if want := Slot(i % 2); s != want {
			t.Fatalf("published[%d] = %d, want %d (sequence %v)", i, s, want, published)
		}
	}
}

// slotTracker records which state each slot is in. Only the test touches it.
type slotTracker struct {
	mu    sync.Mutex
	state map[Slot]string
	t     *testing.T
}

func (s *slotTracker) move(slot Slot, from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if got := s.state[slot]; got != from {
		s.t.Errorf("slot %d in state %q, want %q before moving to %q", slot, got, from, to)
	}
	s.state[slot] = to

	if len(s.state) != NumSlots {
		s.t.Errorf("tracking %d slots, want %d", len(s.state), NumSlots)
	}
}

func TestOwnershipUnderConcurrency(t *testing.T) {
	t.Parallel()

	const rounds = 2000

	p := New()
	ctx := context.Background()
	tracker := &slotTracker{
		state: map[Slot]string{0: "free", 1: "free"},
		t:     t,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			slot, err := p.AcquireFree(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			tracker.move(slot, "free", "writing")
			w := p.Window(slot)
			for j := range w {
				w[j] = int16(i)
			}
			tracker.move(slot, "writing", "full")
			if err := p.PublishFull(ctx, slot); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			slot, err := p.AcquireFull(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			tracker.move(slot, "full", "reading")
			w := p.Window(slot)
			for j := range w {
				if w[j] != int16(i) {
					t.Errorf("round %d: window[%d] = %d, torn write", i, j, w[j])
					break
				}
			}
			tracker.move(slot, "reading", "free")
			if err := p.Release(slot); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	wg.Wait()

	if got := p.FreeLen() + p.FullLen(); got != NumSlots {
		t.Fatalf("slots accounted for = %d, want %d", got, NumSlots)
	}
}
