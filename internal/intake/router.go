package intake

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/pharmacy-orders/internal/pkg/interceptors"
)

// NewRouter mounts the order API under /api with CORS enabled for every
// origin.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(interceptors.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Options("/submit-order", preflight)
		r.Post("/submit-order", h.SubmitOrder)

		r.Options("/orders", preflight)
		r.Post("/orders", h.Relay)
		r.Get("/orders/{id}", h.GetOrder)
	})
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+interceptors.HeaderXIdempotencyKey)
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
