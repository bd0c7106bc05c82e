// Package groutine starts named goroutines. The name is attached as a pprof
// label and stored in the context so logs and profiles can tell workers apart.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "goroutine_name"

// Go runs fn in a new goroutine labelled with name. A nil parent is treated
// as context.Background().
func Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}

	go pprof.Do(parent, pprof.Labels("goroutine_name", name), func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey, name))
	})
}

// Name returns the goroutine name stored in ctx, or "".
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(nameKey).(string)
	return s
}

// Await runs fn in a named goroutine and waits for its result or for ctx to
// end, whichever comes first. On cancellation fn keeps running in the
// background and its result is dropped.
func Await[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}

	done := make(chan result, 1)
	Go(ctx, name, func(ctx context.Context) {
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}
