// Package widget is the view-binding layer: it exposes the catalog, the cart
// and the order flow as JSON so any front end can render them.
package widget

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
	"github.com/jcmexdev/pharmacy-orders/internal/catalog/feed"
	"github.com/jcmexdev/pharmacy-orders/internal/notify"
	"github.com/jcmexdev/pharmacy-orders/internal/order"
	"github.com/jcmexdev/pharmacy-orders/internal/submission"
	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog"
)

const maxBodyBytes = 64 << 10

// Handler serves the widget endpoints.
type Handler struct {
	store  *catalog.Store
	loader *feed.Loader
	orch   *submission.Orchestrator
	board  *notify.Board
	// attempts may be nil when the attempt log is disabled.
	attempts attemptlog.Reader
	log      *slog.Logger

	mu     sync.Mutex
	source feed.Source

	// version counts catalog changes so a view can poll /status cheaply.
	version     atomic.Uint64
	unsubscribe func()
}

// NewHandler binds the view to its collaborators. source is where the
// current catalog came from. attempts may be nil.
func NewHandler(
	store *catalog.Store,
	loader *feed.Loader,
	orch *submission.Orchestrator,
	board *notify.Board,
	attempts attemptlog.Reader,
	source feed.Source,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		store:  store,
		loader: loader,
		orch:   orch,
		board:    board,
		attempts: attempts,
		log:      logger,
		source:   source,
	}
	h.unsubscribe = store.Subscribe(func(catalog.Change) {
		h.version.Add(1)
	})
	return h
}

// Close detaches the handler from the store.
func (h *Handler) Close() {
	h.unsubscribe()
}

// Catalog lists items in catalog order, filtered by ?q= when given.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	items := h.store.Filter(r.URL.Query().Get("q"))

	out := CatalogResponse{Source: string(h.currentSource()), Items: make([]ItemResponse, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, ItemResponse{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: h.store.Quantity(it.Name),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ReloadCatalog fetches the feed again. It is refused while an order is
// being submitted.
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if h.orch.Submitting() {
		writeError(w, http.StatusConflict, "reload_blocked", "an order is being submitted")
		return
	}

	res, err := h.loader.LoadInto(r.Context(), h.store)
	if err != nil {
		h.log.ErrorContext(r.Context(), "catalog reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}

	h.mu.Lock()
	h.source = res.Source
	h.mu.Unlock()

	out := ReloadResponse{
		Source:     string(res.Source),
		Items:      len(res.Items),
		Rejected:   res.Rejected,
		Duplicates: res.Duplicates,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

// Cart returns the selected lines with their totals.
func (h *Handler) Cart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cartResponse(h.store.Lines()))
}

// Increment adds one unit of the {name} item. Unknown names answer 404.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, h.store.Increment)
}

func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, h.store.Decrement)
}

func (h *Handler) changeQuantity(w http.ResponseWriter, r *http.Request, op func(string) (int, bool)) {
	name, err := itemName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_item_name", err.Error())
		return
	}
	qty, ok := op(name)
	if !ok && !h.store.Has(name) {
		writeError(w, http.StatusNotFound, "item_not_found", name)
		return
	}
	writeJSON(w, http.StatusOK, QuantityResponse{
		Name:     name,
		Quantity: qty,
		Summary:  summaryResponse(h.store.Summarize()),
	})
}

// itemName returns the {name} segment decoded. chi matches against RawPath
// when the request carries escapes such as %2F, and the parameter is then
// still encoded.
func itemName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

// ResetCart zeroes every quantity.
func (h *Handler) ResetCart(w http.ResponseWriter, _ *http.Request) {
	h.store.Reset()
	writeJSON(w, http.StatusOK, cartResponse(h.store.Lines()))
}

// SubmitOrder answers 200 on success, 422 when the form is invalid and 502
// when the sink failed or timed out.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	out, err := h.orch.Submit(r.Context(), req.toRequest())
	if errors.Is(err, submission.ErrSubmitInProgress) {
		writeError(w, http.StatusConflict, "submit_in_progress", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "submit_failed", err.Error())
		return
	}

	status := http.StatusOK
	switch {
	case !out.Validation.Valid:
		status = http.StatusUnprocessableEntity
	case out.State == submission.StateError:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

// Handoff answers with a message-app link for the current cart. The body,
// when present, is the customer contact data.
func (h *Handler) Handoff(w http.ResponseWriter, r *http.Request) {
	var c order.Customer
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
	}

	link, err := h.orch.Handoff(r.Context(), c)
	if errors.Is(err, submission.ErrNothingSelected) {
		writeError(w, http.StatusUnprocessableEntity, "nothing_selected", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "handoff_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Dismiss clears an error message and returns the resulting state.
func (h *Handler) Dismiss(w http.ResponseWriter, _ *http.Request) {
	h.orch.Dismiss()
	writeJSON(w, http.StatusOK, StateResponse{State: h.orch.State()})
}

// PendingOrder returns the backed-up failed submission, or 404.
func (h *Handler) PendingOrder(w http.ResponseWriter, r *http.Request) {
	sub, err := h.orch.PendingOrder(r.Context())
	if errors.Is(err, submission.ErrNoPending) {
		writeError(w, http.StatusNotFound, "no_pending_order", "")
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to read pending order", "error", err)
		writeError(w, http.StatusInternalServerError, "pending_read_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ClearPendingOrder drops the backed-up order after manual recovery.
func (h *Handler) ClearPendingOrder(w http.ResponseWriter, r *http.Request) {
	err := h.orch.ClearPending(r.Context())
	if errors.Is(err, submission.ErrNoPending) {
		writeError(w, http.StatusNotFound, "no_pending_order", "")
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to clear pending order", "error", err)
		writeError(w, http.StatusInternalServerError, "pending_clear_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OrderStatus reports the latest attempt log entry for an order.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	if h.attempts == nil {
		writeError(w, http.StatusNotImplemented, "attempt_log_disabled", "")
		return
	}
	id := chi.URLParam(r, "id")
	e, err := h.attempts.Latest(r.Context(), id)
	if h.attemptLookupFailed(w, r, id, err) {
		return
	}
	writeJSON(w, http.StatusOK, attemptResponse(*e))
}

// OrderAttempts lists every attempt log entry for an order, oldest first.
func (h *Handler) OrderAttempts(w http.ResponseWriter, r *http.Request) {
	if h.attempts == nil {
		writeError(w, http.StatusNotImplemented, "attempt_log_disabled", "")
		return
	}
	id := chi.URLParam(r, "id")
	entries, err := h.attempts.History(r.Context(), id)
	if h.attemptLookupFailed(w, r, id, err) {
		return
	}
	out := AttemptsResponse{OrderID: id, Attempts: make([]AttemptResponse, 0, len(entries))}
	for _, e := range entries {
		out.Attempts = append(out.Attempts, attemptResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) attemptLookupFailed(w http.ResponseWriter, r *http.Request, id string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, attemptlog.ErrNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", id)
	default:
		h.log.ErrorContext(r.Context(), "failed to read attempt log", "order_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "attempt_read_failed", err.Error())
	}
	return true
}

// Status is what a view polls: the submit state, the catalog version, the
// current message and the cart totals.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	out := StatusResponse{
		State:   h.orch.State(),
		Version: h.version.Load(),
		Summary: summaryResponse(h.store.Summarize()),
	}
	if msg, ok := h.board.Current(); ok {
		out.Message = &msg
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) currentSource() feed.Source {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
