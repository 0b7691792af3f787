package spsc

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// signal is a counting semaphore with an upper bound. It wraps a weighted
// semaphore of size limit whose held weight is limit minus the available count,
// so releasing beyond limit panics instead of silently overflowing.
type signal struct {
	w *semaphore.Weighted
}

func newSignal(initial, limit int) *signal {
	sig := &signal{
		w: semaphore.NewWeighted(int64(limit)),
	}
	if held := int64(limit - initial); held > 0 {
		// nothing else can hold the semaphore yet
		sig.w.TryAcquire(held)
	}
	return sig
}

// acquire takes one unit, parking the goroutine until one is released or
// ctx is done. No unit is taken when an error is returned.
func (sig *signal) acquire(ctx context.Context) error {
	return sig.w.Acquire(ctx, 1)
}

func (sig *signal) tryAcquire() bool {
	return sig.w.TryAcquire(1)
}

func (sig *signal) release() {
	sig.w.Release(1)
}
