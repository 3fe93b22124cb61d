package intake

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/pharmacy-orders/internal/order"
	"github.com/jcmexdev/pharmacy-orders/internal/order/validation"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/interceptors"
)

const (
	msgSaved    = "Pedido guardado correctamente"
	msgReceived = "Pedido recibido"

	maxBodyBytes = 1 << 20
)

var tracer = otel.Tracer("order-intake")

// Handler serves the order API and the relay.
type Handler struct {
	sheet     Sheet
	publisher Publisher // nil-safe: relay only logs
	policy    HeaderPolicy
	log       *slog.Logger
	now       func() time.Time
}

// NewHandler wires the handler. publisher may be nil.
func NewHandler(sheet Sheet, publisher Publisher, policy HeaderPolicy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sheet:     sheet,
		publisher: publisher,
		policy:    policy,
		log:       logger,
		now:       time.Now,
	}
}

// SubmitOrder validates a prescription and appends it to the order sheet.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "SubmitOrder")
	defer span.End()

	var p validation.Prescription
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON", Message: err.Error()})
		return
	}

	if res := validation.ValidatePrescription(p); !res.Valid {
		span.SetAttributes(attribute.Int("validation.issues", len(res.Issues)))
		h.log.InfoContext(ctx, "order rejected", "order_id", p.OrderID, "issues", res.Errors())
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: res.Errors()})
		return
	}

	now := h.now()
	if p.OrderID == "" {
		p.OrderID = order.NewOrderID(now)
	}
	row := PrescriptionRow(p, now)
	span.SetAttributes(attribute.String("order.id", p.OrderID))

	if err := EnsureHeaders(ctx, h.sheet, h.policy); err != nil {
		h.internalError(ctx, w, p.OrderID, err)
		return
	}
	if err := h.sheet.AddRow(ctx, row); err != nil {
		h.internalError(ctx, w, p.OrderID, err)
		return
	}

	h.log.InfoContext(ctx, "order saved",
		"order_id", p.OrderID,
		"request_id", interceptors.RequestID(ctx),
		"idempotency_key", interceptors.IdempotencyKey(ctx),
	)

	writeJSON(w, http.StatusOK, SubmitResponse{
		Success:   true,
		Message:   msgSaved,
		OrderID:   p.OrderID,
		Timestamp: row[1],
	})
}

// GetOrder reads a saved order row back by its id.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Order id required"})
		return
	}

	row, err := h.sheet.FindRow(r.Context(), id)
	if errors.Is(err, ErrRowNotFound) {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "Order not found"})
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to read order", "order_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, recordFromRow(row))
}

// Relay logs what it receives and forwards it when a publisher is set. It
// answers 200 whatever happens.
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "RelayOrder")
	defer span.End()

	var o RelayOrder
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&o); err != nil {
		h.log.WarnContext(ctx, "relay body unreadable", "error", err)
		writeJSON(w, http.StatusOK, MessageResponse{Message: msgReceived})
		return
	}

	h.log.InfoContext(ctx, "order relayed",
		"client_name", o.ClientName,
		"client_phone", o.ClientPhone,
		"client_email", o.ClientEmail,
		"total_items", o.TotalItems,
		"timestamp", o.Timestamp,
	)

	if h.publisher != nil {
		key := interceptors.IdempotencyKey(ctx)
		if key == "" {
			key = uuid.NewString()
		}
		raw, _ := json.Marshal(o)
		if err := h.publisher.Publish(ctx, key, raw); err != nil {
			span.RecordError(err)
			h.log.ErrorContext(ctx, "failed to forward relayed order", "key", key, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msgReceived})
}

func (h *Handler) internalError(ctx context.Context, w http.ResponseWriter, orderID string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	h.log.ErrorContext(ctx, "failed to save order", "order_id", orderID, "error", err)
	writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}
