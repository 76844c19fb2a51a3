// Package pool implements the two-slot double buffer shared by the sampler
// and the transmitter.
//
// Ownership of a slot moves only through the free and full channels: whoever
// received a slot index last is the only party allowed to touch the matching
// window until it sends the index on. No lock guards the window contents.
package pool

import (
	"context"
	"errors"
	"fmt"

	"sleepywoodpecker/ecg-stream/internal/window"
)

// NumSlots is the number of raw windows in the pool.
const NumSlots = 2

var (
	ErrInvalidSlot  = errors.New("[pool] invalid slot index")
	ErrPoolOverflow = errors.New("[pool] free queue already holds every slot")
)

// Slot identifies one of the pool's raw windows.
type Slot int

type Pool struct {
	windows [NumSlots]window.Raw
	free    chan Slot
	full    chan Slot
}

// New allocates both windows and queues every slot as free, in index order.
func New() *Pool {
	p := &Pool{
		free: make(chan Slot, NumSlots),
		full: make(chan Slot, NumSlots),
	}
	for i := 0; i < NumSlots; i++ {
		p.free <- Slot(i)
	}
	return p
}

// AcquireFree blocks until a slot is free and hands it to the caller.
func (p *Pool) AcquireFree(ctx context.Context) (Slot, error) {
	select {
	case slot := <-p.free:
		return slot, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("[pool] acquire free: %w", ctx.Err())
	}
}

// PublishFull queues a filled slot for the consumer, blocking while the full
// queue is saturated.
func (p *Pool) PublishFull(ctx context.Context, slot Slot) error {
	if !valid(slot) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	select {
	case p.full <- slot:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("[pool] publish full: %w", ctx.Err())
	}
}

// AcquireFull blocks until a filled slot is available.
func (p *Pool) AcquireFull(ctx context.Context) (Slot, error) {
	select {
	case slot := <-p.full:
		return slot, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("[pool] acquire full: %w", ctx.Err())
	}
}

// Release hands a consumed slot back to the free queue. With two slots the
// free queue can never be saturated by a legitimate release, so a saturated
// queue means the slot was released twice and is reported instead of blocking.
func (p *Pool) Release(slot Slot) error {
	if !valid(slot) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	select {
	case p.free <- slot:
		return nil
	default:
		return fmt.Errorf("%w: slot %d", ErrPoolOverflow, slot)
	}
}

// Window returns the raw window behind slot. Only the current owner of the
// slot may read or write it.
func (p *Pool) Window(slot Slot) *window.Raw {
	return &p.windows[slot]
}

func (p *Pool) FreeLen() int { return len(p.free) }
func (p *Pool) FullLen() int { return len(p.full) }

func valid(slot Slot) bool {
	return slot >= 0 && int(slot) < NumSlots
}
