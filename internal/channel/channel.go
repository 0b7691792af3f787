// Package channel gives the bench harness one shape over the queue backends it can drive.
package channel

import (
	"context"
	"fmt"

	"github.com/OCAP2/spsc/pkg/spsc"
)

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() T
	TryReceive() (T, bool)
	ReceiveContext(ctx context.Context) (T, error)
	Len() int
	Cap() int
	Close()
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	TrySend(T) bool
	SendContext(ctx context.Context, v T) error
	Close()
}

// Backend names a channel implementation.
type Backend string

const (
	// BackendSPSC is the lock-free ring from pkg/spsc.
	BackendSPSC Backend = "spsc"
	// BackendNative is a buffered Go channel, used as the baseline.
	BackendNative Backend = "native"
)

// ParseBackend converts a config string to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendSPSC, BackendNative:
		return b, nil
	default:
		return "", fmt.Errorf("unknown channel backend: %s", s)
	}
}

// New creates a receiver/sender pair of the given backend. A non-positive
// size selects spsc.DefaultCapacity for either backend.
// opts only apply to the spsc backend.
func New[T any](backend Backend, size int, opts ...spsc.Option) (Receiver[T], Sender[T], error) {
	if size <= 0 {
		size = spsc.DefaultCapacity
	}
	size = capacity(size)
	switch backend {
	case BackendSPSC:
		rx, tx := spsc.New[T](size, opts...)
		return rx, tx, nil
	case BackendNative:
		b := NewBuffered[T](size)
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("unknown channel backend: %s", backend)
	}
}
