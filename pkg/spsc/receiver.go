package spsc

import (
	"context"
	"errors"
	"runtime"
)

// Receiver is the consumer side of a channel. Exactly one exists per channel
// and it must only be used from one goroutine at a time.
type Receiver[T any] struct {
	noCopy  noCopy
	s       *state[T]
	cleanup runtime.Cleanup
}

// TryReceive returns the next value without blocking. It reports false when
// the channel is closed or empty; the two cases are not distinguished.
func (r *Receiver[T]) TryReceive() (T, bool) {
	defer runtime.KeepAlive(r)
	var zero T
	s := r.s
	if s == nil {
		return zero, false
	}
	if !s.open.Load() || !s.items.tryAcquire() {
		s.rejected.Add(1)
		return zero, false
	}
	return s.take(), true
}

// Receive blocks until a value is available. It does not watch the open
// flag: if the sender closes without sending, Receive never returns.
func (r *Receiver[T]) Receive() T {
	defer runtime.KeepAlive(r)
	s := r.attached()
	_ = s.items.acquire(context.Background())
	return s.take()
}

// Poll is TryReceive with a reason. Buffered values are still returned after
// the channel closes; ErrClosed means closed and drained, ErrEmpty means
// open and empty.
func (r *Receiver[T]) Poll() (T, error) {
	defer runtime.KeepAlive(r)
	if r.s == nil {
		var zero T
		return zero, ErrDetached
	}
	v, err := r.s.poll()
	if err != nil {
		r.s.rejected.Add(1)
	}
	return v, err
}

// ReceiveContext blocks until a value is available, ctx is done, or the
// channel is closed and drained.
func (r *Receiver[T]) ReceiveContext(ctx context.Context) (T, error) {
	defer runtime.KeepAlive(r)
	var zero T
	s := r.s
	if s == nil {
		return zero, ErrDetached
	}
	if v, err := s.poll(); !errors.Is(err, ErrEmpty) {
		return v, err
	}
	if err := await(ctx, s, s.items); err != nil {
		if errors.Is(err, ErrClosed) {
			return s.poll()
		}
		return zero, err
	}
	return s.take(), nil
}

// IsOpen reports whether neither side has closed the channel. A detached
// receiver is never open.
func (r *Receiver[T]) IsOpen() bool {
	return r.s != nil && r.s.open.Load()
}

// Close closes the channel from the receiving side. It is idempotent and does
// not wake a sender blocked in Send.
func (r *Receiver[T]) Close() {
	if r.s != nil {
		r.s.close("receiver")
	}
}

// Move transfers ownership to a new Receiver. r is left detached: it no
// longer observes or affects the channel.
func (r *Receiver[T]) Move() *Receiver[T] {
	s := r.s
	if s == nil {
		return &Receiver[T]{}
	}
	r.cleanup.Stop()
	r.s = nil
	moved := newReceiver(s)
	s.detach()
	return moved
}

// Len returns the number of buffered values.
func (r *Receiver[T]) Len() int {
	if r.s == nil {
		return 0
	}
	return r.s.len()
}

// Cap returns the fixed capacity, or 0 for a detached receiver.
func (r *Receiver[T]) Cap() int {
	if r.s == nil {
		return 0
	}
	return r.s.capacity
}

// Stats returns a snapshot of the channel counters.
func (r *Receiver[T]) Stats() Stats {
	if r.s == nil {
		return Stats{}
	}
	return r.s.stats()
}

func (r *Receiver[T]) attached() *state[T] {
	if r.s == nil {
		panic(ErrDetached)
	}
	return r.s
}
