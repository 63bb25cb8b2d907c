package utils

import (
	"context"
	"time"
)

// WithTimeout runs op with a deadline and returns fallback if the
// deadline wins. The same combinator serves every tiered acquisition in
// the app (location fixes, remote writes): a timeout cancels waiting for
// that branch only, never the surrounding operation.
//
// op receives a context that is cancelled when the deadline fires; a
// well-behaved op returns promptly after cancellation, but WithTimeout
// does not wait for it once the deadline has passed.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(ctx context.Context) (T, error), fallback T) (T, error) {
	opCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		v, err := op(opCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-opCtx.Done():
		return fallback, opCtx.Err()
	}
}
