package miniapp

import (
	"context"
	"errors"
)

// ErrPoolClosed is returned when tasks are submitted to a closed Pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// ErrExecutorClosed is returned by DispatchAsync once Close has started.
var ErrExecutorClosed = errors.New("mini-app executor is closed")

// IsInterrupted reports whether a dispatch wait ended by cancellation or
// because the pool was shut down.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrPoolClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
