package interceptors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachRequestMetadata(t *testing.T) {
	var gotID, gotKey string
	h := middleware.RequestID(AttachRequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestID(r.Context())
		gotKey = IdempotencyKey(r.Context())
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set(HeaderXIdempotencyKey, "ORD-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEmpty(t, gotID)
	assert.Equal(t, gotID, rec.Header().Get(HeaderXRequestID))
	assert.Equal(t, "ORD-1", gotKey)
}

func TestTransportStampsHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	defer srv.Close()

	ctx := WithRequestID(context.Background(), "req-7")
	ctx = WithIdempotencyKey(ctx, "ORD-7")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewClient(nil).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	got := <-headers
	assert.Equal(t, "req-7", got.Get(HeaderXRequestID))
	assert.Equal(t, "ORD-7", got.Get(HeaderXIdempotencyKey))
	assert.Empty(t, req.Header.Get(HeaderXRequestID), "caller's request must not be mutated")
}
