// Package interceptors carries request correlation data through HTTP: a
// middleware that lifts it from inbound requests into the context, and a
// RoundTripper that stamps it on outbound requests.
package interceptors

import "context"

const (
	HeaderXRequestID      = "X-Request-Id"
	HeaderXIdempotencyKey = "X-Idempotency-Key"
)

// contextKey keeps these keys from colliding with other packages' string keys.
type contextKey string

const (
	ctxKeyRequestID      contextKey = "request_id"
	ctxKeyIdempotencyKey contextKey = "idempotency_key"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// WithIdempotencyKey stores the key the outbound transport sends as
// X-Idempotency-Key.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKeyIdempotencyKey, key)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(ctxKeyIdempotencyKey).(string)
	return key
}
