// Package groutine starts named goroutines. The name travels as a pprof
// label, so the long-lived loops (write dispatcher, keepalive, discovery)
// stay identifiable in goroutine profiles, and as a context value for exit
// logging.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "goroutine_name"

// Go runs fn on a new goroutine labeled with name. The context passed to fn
// derives from parentCtx, so cancellation flows through unchanged. A nil
// parentCtx means the goroutine is unbound.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)
	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey, name))
	})
}

// GetName returns the name the goroutine was started with, or "" when the
// context did not come through Go.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(nameKey).(string); ok {
		return s
	}
	return ""
}
