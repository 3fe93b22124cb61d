package widget

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/pharmacy-orders/internal/pkg/interceptors"
)

// NewRouter mounts the widget endpoints behind the request id, metadata,
// logging and recovery middleware.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(interceptors.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/catalog", h.Catalog)
	r.Post("/catalog/reload", h.ReloadCatalog)

	r.Get("/cart", h.Cart)
	r.Post("/cart/items/{name}/increment", h.Increment)
	r.Post("/cart/items/{name}/decrement", h.Decrement)
	r.Post("/cart/reset", h.ResetCart)

	r.Post("/orders", h.SubmitOrder)
	r.Post("/orders/handoff", h.Handoff)
	r.Post("/orders/dismiss", h.Dismiss)
	r.Get("/orders/pending", h.PendingOrder)
	r.Delete("/orders/pending", h.ClearPendingOrder)
	r.Get("/orders/{id}", h.OrderStatus)
	r.Get("/orders/{id}/attempts", h.OrderAttempts)

	r.Get("/status", h.Status)
	return r
}
