package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
	"github.com/jcmexdev/pharmacy-orders/internal/catalog/feed"
	"github.com/jcmexdev/pharmacy-orders/internal/notify"
	"github.com/jcmexdev/pharmacy-orders/internal/order/validation"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/cache"
	"github.com/jcmexdev/pharmacy-orders/internal/submission"
	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog/sqlite"
)

type env struct {
	router http.Handler
	store  *catalog.Store
	orch   *submission.Orchestrator
}

func newEnv(t *testing.T, sinkHandler http.HandlerFunc, feedURL string) env {
	t.Helper()

	sinkSrv := httptest.NewServer(sinkHandler)
	t.Cleanup(sinkSrv.Close)

	board := notify.NewBoard()
	store := catalog.NewStore()
	loader := feed.NewLoader(feed.Config{URL: feedURL, Notifier: board, MessageDelay: time.Second})
	res, err := loader.LoadInto(context.Background(), store)
	require.NoError(t, err)

	attempts, err := sqlite.Open(filepath.Join(t.TempDir(), "attempts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = attempts.Close() })

	orch := submission.NewOrchestrator(submission.Config{
		Store:        store,
		AttemptLog:   attempts,
		Sink:         submission.NewRelaySink(sinkSrv.URL, nil),
		Rules:        validation.DefaultRules(),
		Notifier:     board,
		Pending:      submission.NewPendingSlot(cache.NewMemoryCache("widget-test")),
		Timeout:      time.Second,
		SuccessDelay: time.Hour,
		HandoffPhone: "5491100000000",
	})

	h := NewHandler(store, loader, orch, board, attempts, res.Source, nil)
	t.Cleanup(h.Close)

	return env{router: NewRouter(h), store: store, orch: orch}
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func firstItem(t *testing.T, store *catalog.Store) string {
	t.Helper()
	items := store.Items()
	require.NotEmpty(t, items)
	return items[0].Name
}

func form() SubmitRequest {
	return SubmitRequest{Form: validation.Form{
		Name:       "Ana Pérez",
		NationalID: "30123456",
		Phone:      "1145678901",
		Email:      "ana@example.com",
	}}
}

func TestCatalogUsesFallbackWithoutFeed(t *testing.T) {
	e := newEnv(t, ok, "")

	rec := call(t, e.router, http.MethodGet, "/catalog", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[CatalogResponse](t, rec)
	assert.Equal(t, string(feed.SourceFallback), got.Source)
	assert.Len(t, got.Items, len(catalog.Fallback()))
}

func TestCatalogFilter(t *testing.T) {
	e := newEnv(t, ok, "")
	name := firstItem(t, e.store)

	rec := call(t, e.router, http.MethodGet, "/catalog?q="+strings.ToUpper(name[:4]), nil)

	got := decode[CatalogResponse](t, rec)
	require.NotEmpty(t, got.Items)
	for _, it := range got.Items {
		assert.Contains(t, strings.ToLower(it.Name), strings.ToLower(name[:4]))
	}
}

func TestCartQuantities(t *testing.T) {
	e := newEnv(t, ok, "")
	name := firstItem(t, e.store)
	path := "/cart/items/" + strings.ReplaceAll(name, " ", "%20")

	call(t, e.router, http.MethodPost, path+"/increment", nil)
	rec := call(t, e.router, http.MethodPost, path+"/increment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[QuantityResponse](t, rec).Quantity)

	rec = call(t, e.router, http.MethodPost, path+"/decrement", nil)
	assert.Equal(t, 1, decode[QuantityResponse](t, rec).Quantity)

	cart := decode[CartResponse](t, call(t, e.router, http.MethodGet, "/cart", nil))
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, name, cart.Lines[0].Name)
	assert.Equal(t, 1, cart.Summary.TotalUnits)

	rec = call(t, e.router, http.MethodPost, "/cart/items/nope/increment", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reset := decode[CartResponse](t, call(t, e.router, http.MethodPost, "/cart/reset", nil))
	assert.Empty(t, reset.Lines)

	rec = call(t, e.router, http.MethodPost, path+"/decrement", nil)
	require.Equal(t, http.StatusOK, rec.Code, "decrement at zero is a no-op")
	assert.Zero(t, decode[QuantityResponse](t, rec).Quantity)
}

func TestCartQuantitiesEscapedNames(t *testing.T) {
	e := newEnv(t, ok, "")
	require.NoError(t, e.store.Load([]catalog.Item{
		catalog.Unpriced("Salbutamol 100mcg/dosis"),
		catalog.Unpriced("Crema 10%"),
	}))

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "encodedSlash", path: "/cart/items/Salbutamol%20100mcg%2Fdosis", want: "Salbutamol 100mcg/dosis"},
		{name: "encodedPercent", path: "/cart/items/Crema%2010%25", want: "Crema 10%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, e.router, http.MethodPost, tt.path+"/increment", nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			got := decode[QuantityResponse](t, rec)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, 1, got.Quantity)
			assert.Equal(t, 1, e.store.Quantity(tt.want))

			rec = call(t, e.router, http.MethodPost, tt.path+"/decrement", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Zero(t, e.store.Quantity(tt.want))
		})
	}
}

func TestItemNameRejectsBadEscape(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/cart/items/x/increment", nil)
	req.URL.RawPath = "/cart/items/%zz/increment"
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("name", "%zz")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := itemName(req)
	assert.Error(t, err)
}

func TestSubmitOrderStatuses(t *testing.T) {
	e := newEnv(t, ok, "")

	rec := call(t, e.router, http.MethodPost, "/orders", form())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "nothing selected")

	e.store.Increment(firstItem(t, e.store))
	rec = call(t, e.router, http.MethodPost, "/orders", form())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[submission.Outcome](t, rec)
	assert.Equal(t, submission.StateSuccess, out.State)

	rec = call(t, e.router, http.MethodPost, "/orders", form())
	assert.Equal(t, http.StatusConflict, rec.Code, "success is still displayed")

	status := decode[StatusResponse](t, call(t, e.router, http.MethodGet, "/status", nil))
	assert.Equal(t, submission.StateSuccess, status.State)
	require.NotNil(t, status.Message)
	assert.Equal(t, submission.MsgSuccess, status.Message.Text)
}

func TestSubmitFailureKeepsPendingOrder(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, "")
	e.store.Increment(firstItem(t, e.store))

	rec := call(t, e.router, http.MethodPost, "/orders", form())
	require.Equal(t, http.StatusBadGateway, rec.Code)
	out := decode[submission.Outcome](t, rec)

	pending := call(t, e.router, http.MethodGet, "/orders/pending", nil)
	require.Equal(t, http.StatusOK, pending.Code)
	assert.Contains(t, pending.Body.String(), out.OrderID)

	dismissed := decode[StateResponse](t, call(t, e.router, http.MethodPost, "/orders/dismiss", nil))
	assert.Equal(t, submission.StateIdle, dismissed.State)

	cleared := call(t, e.router, http.MethodDelete, "/orders/pending", nil)
	assert.Equal(t, http.StatusNoContent, cleared.Code)
	pending = call(t, e.router, http.MethodGet, "/orders/pending", nil)
	assert.Equal(t, http.StatusNotFound, pending.Code)
}

func TestOrderAttempts(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, "")
	e.store.Increment(firstItem(t, e.store))

	out := decode[submission.Outcome](t, call(t, e.router, http.MethodPost, "/orders", form()))
	require.NotEmpty(t, out.OrderID)

	rec := call(t, e.router, http.MethodGet, "/orders/"+out.OrderID+"/attempts", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hist := decode[AttemptsResponse](t, rec)
	var statuses []string
	for _, a := range hist.Attempts {
		statuses = append(statuses, a.Status)
	}
	assert.Equal(t, []string{"SUBMITTING", "FAILED", "BACKED_UP"}, statuses)
	assert.Equal(t, "relay", hist.Attempts[1].Sink)
	assert.NotEqual(t, "[]", string(hist.Attempts[1].Errors))

	latest := decode[AttemptResponse](t, call(t, e.router, http.MethodGet, "/orders/"+out.OrderID, nil))
	assert.Equal(t, "BACKED_UP", latest.Status)

	rec = call(t, e.router, http.MethodGet, "/orders/ORD-unknown/attempts", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(t, e.router, http.MethodGet, "/orders/ORD-unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingOrderMissing(t *testing.T) {
	e := newEnv(t, ok, "")

	rec := call(t, e.router, http.MethodGet, "/orders/pending", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandoff(t *testing.T) {
	e := newEnv(t, ok, "")

	rec := call(t, e.router, http.MethodPost, "/orders/handoff", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	e.store.Increment(firstItem(t, e.store))
	rec = call(t, e.router, http.MethodPost, "/orders/handoff", map[string]string{"name": "Ana"})

	require.Equal(t, http.StatusOK, rec.Code)
	link := decode[submission.Handoff](t, rec)
	assert.True(t, strings.HasPrefix(link.URL, "https://wa.me/5491100000000?text="))
	assert.Contains(t, link.Text, "Nombre: Ana")
}

func TestReloadCatalogBlockedWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	e := newEnv(t, func(w http.ResponseWriter, _ *http.Request) { <-release }, "")
	t.Cleanup(func() { close(release) })
	e.store.Increment(firstItem(t, e.store))

	go call(t, e.router, http.MethodPost, "/orders", form())
	require.Eventually(t, e.orch.Submitting, time.Second, 5*time.Millisecond)

	rec := call(t, e.router, http.MethodPost, "/catalog/reload", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReloadCatalogFromFeed(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Nombre,Precio\nAspirina,\"1.250,50\"\nSin precio,\n"))
	}))
	t.Cleanup(feedSrv.Close)

	e := newEnv(t, ok, feedSrv.URL)
	e.store.Increment("Aspirina")

	rec := call(t, e.router, http.MethodPost, "/catalog/reload", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ReloadResponse](t, rec)
	assert.Equal(t, string(feed.SourceFeed), got.Source)
	assert.Equal(t, 1, got.Items)
	assert.Equal(t, 1, got.Rejected)
	assert.Zero(t, e.store.Quantity("Aspirina"), "reload resets quantities")

	status := decode[StatusResponse](t, call(t, e.router, http.MethodGet, "/status", nil))
	assert.Equal(t, uint64(2), status.Version)
}
