package spsc

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
)

// state is shared by one Receiver and one Sender and is reclaimed once both
// are unreachable.
//
// head and the slot it indexes are only touched by the receiver goroutine;
// tail and its slot only by the sender goroutine. items and space order the
// slot accesses between the two.
type state[T any] struct {
	capacity int
	buf      []T
	head     int
	tail     int

	items *signal
	space *signal

	open atomic.Bool
	// life is cancelled when open latches to false so waiters can observe it.
	life context.Context
	kill context.CancelFunc

	sent     atomic.Uint64
	received atomic.Uint64
	rejected atomic.Uint64

	// handles counts attached Receiver/Sender values; metrics stay
	// registered until it drops to zero.
	handles atomic.Int32

	name   string
	logger Logger
	reg    metric.Registration
}

func newState[T any](capacity int, name string, logger Logger) *state[T] {
	s := &state[T]{
		capacity: capacity,
		buf:      make([]T, capacity),
		items:    newSignal(0, capacity),
		space:    newSignal(capacity, capacity),
		name:     name,
		logger:   logger,
	}
	s.life, s.kill = context.WithCancel(context.Background())
	s.open.Store(true)
	return s
}

// put writes v at tail and publishes it. The caller holds a space unit.
func (s *state[T]) put(v T) {
	s.buf[s.tail] = v
	s.tail = (s.tail + 1) % s.capacity
	s.sent.Add(1)
	s.items.release()
}

// take removes the value at head and frees its slot. The caller holds an
// items unit.
func (s *state[T]) take() T {
	var zero T
	v := s.buf[s.head]
	s.buf[s.head] = zero
	s.head = (s.head + 1) % s.capacity
	s.received.Add(1)
	s.space.release()
	return v
}

// poll takes a value if one is buffered, regardless of the open flag.
func (s *state[T]) poll() (T, error) {
	if s.items.tryAcquire() {
		return s.take(), nil
	}
	var zero T
	if s.open.Load() {
		return zero, ErrEmpty
	}
	// the sender publishes before it closes, so look once more
	if s.items.tryAcquire() {
		return s.take(), nil
	}
	return zero, ErrClosed
}

// len is clamped to [0, capacity] since the two counters are loaded
// separately while both sides make progress.
func (s *state[T]) len() int {
	received := s.received.Load()
	sent := s.sent.Load()
	if sent <= received {
		return 0
	}
	if n := sent - received; n < uint64(s.capacity) {
		return int(n)
	}
	return s.capacity
}

func (s *state[T]) stats() Stats {
	return Stats{
		Sent:     s.sent.Load(),
		Received: s.received.Load(),
		Rejected: s.rejected.Load(),
		Open:     s.open.Load(),
	}
}

// close latches open to false. Only the first call has any effect.
func (s *state[T]) close(by string) {
	if !s.open.CompareAndSwap(true, false) {
		return
	}
	s.kill()
	s.logger.Debug("channel closed", "channel", s.name, "by", by, "pending", s.len())
}

// detach drops one handle reference. The last one out unregisters the
// metrics callback so the state can be collected.
func (s *state[T]) detach() {
	if s.handles.Add(-1) != 0 || s.reg == nil {
		return
	}
	if err := s.reg.Unregister(); err != nil {
		s.logger.Error("unregistering channel metrics", "channel", s.name, "error", err)
	}
}
