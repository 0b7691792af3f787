// Package storage keeps the history of benchmark runs.
package storage

import "github.com/OCAP2/spsc/internal/bench"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Save records a finished run.
	Save(res bench.Result) error
	// Recent returns up to n runs, newest first.
	Recent(n int) ([]bench.Result, error)
}

// Nop discards everything. Used when storage.type is "none".
type Nop struct{}

func (Nop) Init() error                        { return nil }
func (Nop) Close() error                       { return nil }
func (Nop) Save(bench.Result) error            { return nil }
func (Nop) Recent(int) ([]bench.Result, error) { return nil, nil }
