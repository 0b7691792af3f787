// Package memory keeps run results in process memory.
package memory

import (
	"sort"
	"sync"

	"github.com/OCAP2/spsc/internal/bench"
)

// Backend stores runs in a slice.
type Backend struct {
	runs []bench.Result
	mu   sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// Save appends a run.
func (b *Backend) Save(res bench.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs = append(b.runs, res)
	return nil
}

// Recent returns up to n runs, newest first.
func (b *Backend) Recent(n int) ([]bench.Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 {
		return nil, nil
	}
	out := make([]bench.Result, len(b.runs))
	copy(out, b.runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
