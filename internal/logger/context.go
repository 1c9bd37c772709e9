package logger

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores a request id on the context so log lines emitted
// anywhere along the deliberation path can be correlated per HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id on the context, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
