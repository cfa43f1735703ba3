package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey int

const queryIDKey contextKey = iota

// WithQueryID returns a context carrying the search correlation id.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey, id)
}

// QueryID extracts the search correlation id, or "" if unset.
func QueryID(ctx context.Context) string {
	id, _ := ctx.Value(queryIDKey).(string)
	return id
}

// ContextFields returns zap fields derived from the context.
// Safe to call with a context that carries nothing.
func ContextFields(ctx context.Context) []zap.Field {
	if id := QueryID(ctx); id != "" {
		return []zap.Field{zap.String("query_id", id)}
	}
	return nil
}
