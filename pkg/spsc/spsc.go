package spsc

import (
	"context"
	"errors"
	"runtime"

	"go.opentelemetry.io/otel/metric"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

var (
	// ErrClosed is returned by the reporting API once the channel is closed.
	ErrClosed = errors.New("spsc: channel closed")
	// ErrEmpty is returned by Poll when the channel is open but empty.
	ErrEmpty = errors.New("spsc: channel empty")
	// ErrFull is returned by Offer when the channel is open but full.
	ErrFull = errors.New("spsc: channel full")
	// ErrDetached is returned (or panicked with) when a handle was moved away.
	ErrDetached = errors.New("spsc: handle detached")
)

// Logger interface for pluggable logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Option configures a channel at construction.
type Option func(*config)

type config struct {
	name   string
	logger Logger
	meter  metric.Meter
}

// WithName sets the name used in log records and metric attributes.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger logs lifecycle transitions to l.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMeter registers the channel's instruments on m instead of the global meter.
func WithMeter(m metric.Meter) Option {
	return func(c *config) {
		if m != nil {
			c.meter = m
		}
	}
}

// New allocates the shared state for one channel and returns the only
// receiver and sender bound to it.
func New[T any](capacity int, opts ...Option) (*Receiver[T], *Sender[T]) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	cfg := &config{
		name:   "spsc",
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.meter == nil {
		cfg.meter = meter()
	}

	s := newState[T](capacity, cfg.name, cfg.logger)
	if err := s.instrument(cfg.meter); err != nil {
		s.logger.Error("channel metrics disabled", "channel", s.name, "error", err)
	}

	return newReceiver(s), newSender(s)
}

// Stats is a point-in-time snapshot of channel counters.
type Stats struct {
	Sent     uint64
	Received uint64
	Rejected uint64
	Open     bool
}

// noCopy makes go vet's copylocks check reject handles copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Handle methods end with runtime.KeepAlive on their receiver so these
// cleanups cannot run while a call is still using the state.
func dropReceiver[T any](s *state[T]) {
	s.close("receiver dropped")
	s.detach()
}

func dropSender[T any](s *state[T]) {
	s.close("sender dropped")
	s.detach()
}

func newReceiver[T any](s *state[T]) *Receiver[T] {
	s.handles.Add(1)
	r := &Receiver[T]{s: s}
	r.cleanup = runtime.AddCleanup(r, dropReceiver[T], s)
	return r
}

func newSender[T any](s *state[T]) *Sender[T] {
	s.handles.Add(1)
	tx := &Sender[T]{s: s}
	tx.cleanup = runtime.AddCleanup(tx, dropSender[T], s)
	return tx
}

// await blocks on sig until a unit is acquired, ctx ends, or the channel
// closes. A close reports ErrClosed; the caller decides whether to drain.
func await[T any](ctx context.Context, s *state[T], sig *signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.life, cancel)
	defer stop()

	if err := sig.acquire(waitCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrClosed
	}
	return nil
}
