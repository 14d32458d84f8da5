// Package requestcontext propagates per-request metadata (request id,
// request time) through context without handlers reaching into transport
// internals.
package requestcontext

import (
	"context"
	"time"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	requestTimeKey
)

// WithRequestID attaches the request identifier to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request identifier, or empty when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithNow pins the request's observation time. Mutations within one request
// share this timestamp so interval boundaries line up exactly.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, now)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}
