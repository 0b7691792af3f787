// Package bench drives one producer and one consumer goroutine through a
// channel backend and measures the hand-off.
package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/OCAP2/spsc/internal/channel"
	"github.com/OCAP2/spsc/internal/monitor"
	"github.com/OCAP2/spsc/pkg/spsc"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// Mode selects which channel operations the run exercises.
type Mode string

const (
	// ModeBlocking uses Send and Receive.
	ModeBlocking Mode = "blocking"
	// ModePolling spins on TrySend and TryReceive.
	ModePolling Mode = "polling"
	// ModeContext uses SendContext and ReceiveContext.
	ModeContext Mode = "context"
)

// ErrOutOfOrder is returned when the consumer sees a value out of sequence.
var ErrOutOfOrder = errors.New("bench: value received out of order")

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBlocking, ModePolling, ModeContext:
		return m, nil
	default:
		return "", fmt.Errorf("unknown bench mode: %s", s)
	}
}

// Config describes a single run.
type Config struct {
	Backend  channel.Backend
	Mode     Mode
	Capacity int
	Messages int
	// ChannelLogger receives the channel's own events. Defaults to the run logger.
	ChannelLogger spsc.Logger
	// SampleInterval enables queue depth sampling when positive.
	SampleInterval time.Duration
	// Meter receives the channel instruments. Nil uses the global meter.
	Meter metric.Meter
	// Flush, when set, runs after the last value is consumed while the
	// channel's instruments are still registered.
	Flush func(context.Context) error
}

// Result is the outcome of a run.
type Result struct {
	RunID     uuid.UUID
	Backend   channel.Backend
	Mode      Mode
	Capacity  int
	Messages  int
	StartedAt time.Time
	Duration  time.Duration
	Stats     spsc.Stats
	// Depth is zero unless sampling was enabled.
	Depth monitor.Summary
}

// Throughput returns messages per second.
func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Messages) / r.Duration.Seconds()
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Run sends 0..Messages-1 from a producer goroutine to a consumer goroutine
// and checks that every value arrives in order.
func Run(ctx context.Context, cfg Config, logger Logger) (Result, error) {
	res := Result{
		RunID:    uuid.New(),
		Backend:  cfg.Backend,
		Mode:     cfg.Mode,
		Capacity: cfg.Capacity,
		Messages: cfg.Messages,
	}
	if cfg.Messages < 0 {
		return res, fmt.Errorf("messages must not be negative: %d", cfg.Messages)
	}

	chLogger := cfg.ChannelLogger
	if chLogger == nil {
		chLogger = logger
	}
	rx, tx, err := channel.New[int](cfg.Backend, cfg.Capacity,
		spsc.WithName(res.RunID.String()),
		spsc.WithLogger(chLogger),
		spsc.WithMeter(cfg.Meter),
	)
	if err != nil {
		return res, err
	}
	res.Capacity = rx.Cap()

	logger.Debug("run starting", "runId", res.RunID, "backend", cfg.Backend, "mode", cfg.Mode,
		"capacity", res.Capacity, "messages", cfg.Messages)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sampler *monitor.Service
	if cfg.SampleInterval > 0 {
		sampler = monitor.NewService(monitor.Dependencies{
			Depth:    rx.Len,
			Interval: cfg.SampleInterval,
			Logger:   logger,
		})
		if err := sampler.Start(); err != nil {
			return res, err
		}
	}

	prodErr := make(chan error, 1)
	res.StartedAt = time.Now()

	go func() {
		err := produce(runCtx, cfg.Mode, tx, cfg.Messages)
		// TryReceive reports a closed channel as empty, so only hang up
		// where the consumer can still drain: on failure and in context mode.
		if err != nil || cfg.Mode == ModeContext {
			tx.Close()
		}
		prodErr <- err
	}()

	received, consErr := consume(runCtx, cfg.Mode, rx, cfg.Messages)
	res.Duration = time.Since(res.StartedAt)
	if sampler != nil {
		res.Depth = sampler.Stop()
	}
	if consErr != nil {
		cancel()
		rx.Close()
		if cfg.Mode == ModeBlocking {
			// Send ignores close; take what is left so the producer finishes
			for ; received < cfg.Messages; received++ {
				rx.Receive()
			}
		}
	}
	err = errors.Join(consErr, <-prodErr)
	// a collected sender closes the channel, which polling could not drain
	runtime.KeepAlive(tx)

	if cfg.Flush != nil {
		if ferr := cfg.Flush(context.WithoutCancel(ctx)); ferr != nil {
			logger.Error("flushing telemetry", "runId", res.RunID, "error", ferr)
		}
	}
	rx.Close()

	if s, ok := rx.(interface{ Stats() spsc.Stats }); ok {
		res.Stats = s.Stats()
	}

	if err != nil {
		logger.Error("run failed", "runId", res.RunID, "error", err)
		return res, err
	}

	logger.Info("run complete", "runId", res.RunID, "duration", res.Duration,
		"throughput", res.Throughput())
	return res, nil
}

func produce(ctx context.Context, mode Mode, tx channel.Sender[int], n int) error {
	for i := 0; i < n; i++ {
		switch mode {
		case ModeBlocking:
			tx.Send(i)
		case ModePolling:
			for !tx.TrySend(i) {
				if err := ctx.Err(); err != nil {
					return err
				}
				runtime.Gosched()
			}
		case ModeContext:
			if err := tx.SendContext(ctx, i); err != nil {
				return fmt.Errorf("sending %d: %w", i, err)
			}
		default:
			return fmt.Errorf("unknown bench mode: %s", mode)
		}
	}
	return nil
}

func consume(ctx context.Context, mode Mode, rx channel.Receiver[int], n int) (int, error) {
	for want := 0; want < n; want++ {
		var got int
		switch mode {
		case ModeBlocking:
			got = rx.Receive()
		case ModePolling:
			for {
				v, ok := rx.TryReceive()
				if ok {
					got = v
					break
				}
				if err := ctx.Err(); err != nil {
					return want, err
				}
				runtime.Gosched()
			}
		case ModeContext:
			v, err := rx.ReceiveContext(ctx)
			if err != nil {
				return want, fmt.Errorf("receiving %d: %w", want, err)
			}
			got = v
		default:
			return want, fmt.Errorf("unknown bench mode: %s", mode)
		}
		if got != want {
			return want + 1, fmt.Errorf("%w: got %d, want %d", ErrOutOfOrder, got, want)
		}
	}
	return n, nil
}
