package channel

import (
	"context"
	"sync"

	"github.com/OCAP2/spsc/pkg/spsc"
)

// Buffered adapts a buffered Go channel to Receiver and Sender. Both ends
// share one value.
type Buffered[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewBuffered creates a new buffered channel with the given size
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{
		ch:   make(chan T, size),
		done: make(chan struct{}),
	}
}

// Send blocks until there is room for v
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// TrySend sends v if there is room and the channel is not closed
func (b *Buffered[T]) TrySend(v T) bool {
	if b.closed() {
		return false
	}
	select {
	case b.ch <- v:
		return true
	default:
		return false
	}
}

// SendContext blocks until v is sent, ctx is done or the channel is closed
func (b *Buffered[T]) SendContext(ctx context.Context, v T) error {
	if b.closed() {
		return spsc.ErrClosed
	}
	select {
	case b.ch <- v:
		return nil
	case <-b.done:
		return spsc.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a value arrives
func (b *Buffered[T]) Receive() T {
	return <-b.ch
}

// TryReceive returns a value if one is buffered and the channel is not closed
func (b *Buffered[T]) TryReceive() (T, bool) {
	var zero T
	if b.closed() {
		return zero, false
	}
	select {
	case v := <-b.ch:
		return v, true
	default:
		return zero, false
	}
}

// ReceiveContext blocks until a value arrives, ctx is done, or the channel
// is closed and drained
func (b *Buffered[T]) ReceiveContext(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-b.ch:
		return v, nil
	case <-b.done:
		select {
		case v := <-b.ch:
			return v, nil
		default:
			return zero, spsc.ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Len returns the number of items currently in the buffer
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Cap returns the buffer size
func (b *Buffered[T]) Cap() int {
	return cap(b.ch)
}

// Close marks the channel closed. The Go channel itself is left open since
// closing it from the consumer would make a blocked producer panic.
func (b *Buffered[T]) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Buffered[T]) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
