package spsc

import (
	"context"
	"runtime"
)

// Sender is the producer side of a channel. Exactly one exists per channel
// and it must only be used from one goroutine at a time.
type Sender[T any] struct {
	noCopy  noCopy
	s       *state[T]
	cleanup runtime.Cleanup
}

// TrySend enqueues v without blocking. It reports false when the channel is
// closed or full, in which case the buffer is left untouched.
func (tx *Sender[T]) TrySend(v T) bool {
	defer runtime.KeepAlive(tx)
	s := tx.s
	if s == nil {
		return false
	}
	if !s.open.Load() || !s.space.tryAcquire() {
		s.rejected.Add(1)
		return false
	}
	s.put(v)
	return true
}

// Send blocks until there is room for v. Like Receive it ignores the open
// flag, so a full channel whose receiver has gone away blocks forever.
func (tx *Sender[T]) Send(v T) {
	defer runtime.KeepAlive(tx)
	s := tx.attached()
	_ = s.space.acquire(context.Background())
	s.put(v)
}

// Offer is TrySend with a reason: ErrClosed or ErrFull.
func (tx *Sender[T]) Offer(v T) error {
	defer runtime.KeepAlive(tx)
	s := tx.s
	if s == nil {
		return ErrDetached
	}
	if !s.open.Load() {
		s.rejected.Add(1)
		return ErrClosed
	}
	if !s.space.tryAcquire() {
		s.rejected.Add(1)
		return ErrFull
	}
	s.put(v)
	return nil
}

// SendContext blocks until v is enqueued, ctx is done, or the channel closes.
func (tx *Sender[T]) SendContext(ctx context.Context, v T) error {
	defer runtime.KeepAlive(tx)
	s := tx.s
	if s == nil {
		return ErrDetached
	}
	if !s.open.Load() {
		return ErrClosed
	}
	if !s.space.tryAcquire() {
		if err := await(ctx, s, s.space); err != nil {
			return err
		}
	}
	s.put(v)
	return nil
}

// IsOpen reports whether neither side has closed the channel. A detached
// sender is never open.
func (tx *Sender[T]) IsOpen() bool {
	return tx.s != nil && tx.s.open.Load()
}

// Close closes the channel from the sending side. It is idempotent and does
// not wake a receiver blocked in Receive.
func (tx *Sender[T]) Close() {
	if tx.s != nil {
		tx.s.close("sender")
	}
}

// Move transfers ownership to a new Sender and detaches tx.
func (tx *Sender[T]) Move() *Sender[T] {
	s := tx.s
	if s == nil {
		return &Sender[T]{}
	}
	tx.cleanup.Stop()
	tx.s = nil
	moved := newSender(s)
	s.detach()
	return moved
}

// Len returns the number of buffered values.
func (tx *Sender[T]) Len() int {
	if tx.s == nil {
		return 0
	}
	return tx.s.len()
}

// Cap returns the fixed capacity, or 0 for a detached sender.
func (tx *Sender[T]) Cap() int {
	if tx.s == nil {
		return 0
	}
	return tx.s.capacity
}

// Stats returns a snapshot of the channel counters.
func (tx *Sender[T]) Stats() Stats {
	if tx.s == nil {
		return Stats{}
	}
	return tx.s.stats()
}

func (tx *Sender[T]) attached() *state[T] {
	if tx.s == nil {
		panic(ErrDetached)
	}
	return tx.s
}
