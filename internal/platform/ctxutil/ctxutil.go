package ctxutil

import "context"

// Default guards call sites that may receive a nil context from legacy callers.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
