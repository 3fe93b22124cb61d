package interceptors

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// AttachRequestMetadata stores chi's request id and the caller's idempotency
// key in the request context. It must run after middleware.RequestID.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = WithRequestID(ctx, id)
			w.Header().Set(HeaderXRequestID, id)
		}
		if key := r.Header.Get(HeaderXIdempotencyKey); key != "" {
			ctx = WithIdempotencyKey(ctx, key)
		}
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Transport copies the request id, idempotency key and trace context from the
// outbound request's context into its headers.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	ctx := req.Context()
	out := req.Clone(ctx)
	if id := RequestID(ctx); id != "" && out.Header.Get(HeaderXRequestID) == "" {
		out.Header.Set(HeaderXRequestID, id)
	}
	if key := IdempotencyKey(ctx); key != "" && out.Header.Get(HeaderXIdempotencyKey) == "" {
		out.Header.Set(HeaderXIdempotencyKey, key)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

	return base.RoundTrip(out)
}

// NewClient returns an http.Client using Transport over base.
func NewClient(base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &Transport{Base: base}}
}
