package resilience

import (
	"context"
	"fmt"
	"time"
)

type outcome[T any] struct {
	val T
	err error
}

// Call runs fn under a context that expires after timeout and returns its
// value. When the deadline passes first, Call returns an error wrapping
// context.DeadlineExceeded without waiting for fn; fn is expected to notice
// its context and stop. A non-positive timeout runs fn directly.
func Call[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome[T]{val: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil || timeoutCtx.Err() == nil {
			return out.val, out.err
		}
	case <-timeoutCtx.Done():
	}
	var zero T
	if ctx.Err() != nil {
		return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	return zero, fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
}

// WithTimeout is Call for functions that only return an error.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
