// Package runctx holds channel helpers that give up when a context ends.
package runctx

import (
	"context"

	"sunstock-dashboard/internal/logging"
)

func mustLogger(fn string, logger *logging.Logger) {
	if logger == nil {
		panic("runctx." + fn + ": logger must not be nil")
	}
}

func logStop(ctx context.Context, logger *logging.Logger, name, why string) {
	logger.Debug("stopping "+name+": "+why, logging.Field("error", ctx.Err()))
}

// RecvOrDone receives from in unless ctx ends first. ok is false when ctx
// ended or in was closed.
func RecvOrDone[T any](ctx context.Context, name string, logger *logging.Logger, in <-chan T) (T, bool) {
	mustLogger("RecvOrDone", logger)
	select {
	case <-ctx.Done():
		logStop(ctx, logger, name, "context canceled")
		var zero T
		return zero, false
	case v, ok := <-in:
		if !ok {
			logger.Debug("stopping " + name + ": input channel closed")
		}
		return v, ok
	}
}

// SendOrDone sends value on out unless ctx ends first.
func SendOrDone[T any](ctx context.Context, name string, logger *logging.Logger, out chan<- T, value T) bool {
	mustLogger("SendOrDone", logger)
	select {
	case <-ctx.Done():
		logStop(ctx, logger, name, "context canceled before send")
		return false
	case out <- value:
		return true
	}
}

// TrySend sends value only if out has room right now.
func TrySend[T any](out chan<- T, value T) bool {
	select {
	case out <- value:
		return true
	default:
		return false
	}
}
