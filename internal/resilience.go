package internal

import (
	"context"
	"sync/atomic"
	"time"
)

// RaceDeadline runs op and returns its result, or a *NetworkTimeoutError if
// it has not settled within d. The operation is not cancelled when the
// deadline fires; whatever it produces afterwards is dropped.
func RaceDeadline[T any](ctx context.Context, op string, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		return r.val, r.err
	case <-timer.C:
		LogDebug("%s exceeded deadline of %s, ignoring late result", op, d)
		return zero, &NetworkTimeoutError{Op: op, After: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// WithMinDuration runs fn and, whether it succeeds or fails, does not return
// before floor has elapsed since the call began.
func WithMinDuration[T any](ctx context.Context, floor time.Duration, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	if remaining := floor - time.Since(start); remaining > 0 {
		if serr := Sleep(ctx, remaining); serr != nil && err == nil {
			var zero T
			return zero, serr
		}
	}
	return v, err
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Epoch hands out monotonically increasing tokens. A result is applied only
// if the token it was started under is still current.
type Epoch struct {
	n atomic.Uint64
}

// Next invalidates all outstanding tokens and returns a fresh one
func (e *Epoch) Next() uint64 {
	return e.n.Add(1)
}

// Current returns the live token without invalidating it
func (e *Epoch) Current() uint64 {
	return e.n.Load()
}

// Valid reports whether token is still the live one
func (e *Epoch) Valid(token uint64) bool {
	return e.n.Load() == token
}
