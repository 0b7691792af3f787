// Package monitor samples a channel's queue depth while a run is in flight.
package monitor

import (
	"errors"
	"sync"
	"time"
)

// Logger is the subset of a structured logger the monitor writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	// Depth reports the number of values currently buffered.
	Depth    func() int
	Interval time.Duration
	Logger   Logger
}

// Summary aggregates the samples taken between Start and Stop.
type Summary struct {
	Samples int
	Peak    int
	Mean    float64
}

// Service manages depth sampling
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	samples int
	peak    int
	sum     int
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// IsRunning returns whether the sampler goroutine is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the sampler goroutine. Starting a running service is a no-op.
func (s *Service) Start() error {
	if s.deps.Depth == nil {
		return errors.New("monitor: no depth source")
	}
	if s.deps.Interval <= 0 {
		return errors.New("monitor: interval must be positive")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.sample()
			}
		}
	}()

	return nil
}

func (s *Service) sample() {
	d := s.deps.Depth()

	s.mu.Lock()
	s.samples++
	s.sum += d
	if d > s.peak {
		s.peak = d
	}
	s.mu.Unlock()
}

// Stop stops the sampler, waits for it to exit and returns the summary.
func (s *Service) Stop() Summary {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return s.Summary()
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done

	sum := s.Summary()
	if s.deps.Logger != nil {
		s.deps.Logger.Debug("depth sampling stopped", "samples", sum.Samples, "peak", sum.Peak, "mean", sum.Mean)
	}
	return sum
}

// Summary returns the aggregate of the samples taken so far.
func (s *Service) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Summary{Samples: s.samples, Peak: s.peak}
	if s.samples > 0 {
		out.Mean = float64(s.sum) / float64(s.samples)
	}
	return out
}
