package widget

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
	"github.com/jcmexdev/pharmacy-orders/internal/notify"
	"github.com/jcmexdev/pharmacy-orders/internal/order"
	"github.com/jcmexdev/pharmacy-orders/internal/order/validation"
	"github.com/jcmexdev/pharmacy-orders/internal/submission"
	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog"
)

type ItemResponse struct {
	Name     string              `json:"name"`
	Price    decimal.NullDecimal `json:"price"`
	Quantity int                 `json:"quantity"`
}

// CatalogResponse lists items in catalog order with their cart quantity.
type CatalogResponse struct {
	Source string         `json:"source"`
	Items  []ItemResponse `json:"items"`
}

type ReloadResponse struct {
	Source     string `json:"source"`
	Items      int    `json:"items"`
	Rejected   int    `json:"rejected"`
	Duplicates int    `json:"duplicates"`
	Error      string `json:"error,omitempty"`
}

type LineResponse struct {
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
}

type SummaryResponse struct {
	TotalUnits int             `json:"total_units"`
	TotalPrice decimal.Decimal `json:"total_price"`
	LineCount  int             `json:"line_count"`
}

type CartResponse struct {
	Lines   []LineResponse  `json:"lines"`
	Summary SummaryResponse `json:"summary"`
}

type QuantityResponse struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Summary  SummaryResponse `json:"summary"`
}

// SubmitRequest is the order form. The clinical fields are optional.
type SubmitRequest struct {
	validation.Form
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Doctor       string `json:"doctor,omitempty"`
	Observations string `json:"observations,omitempty"`
}

func (r SubmitRequest) toRequest() submission.Request {
	return submission.Request{
		Form: r.Form,
		Clinical: order.Clinical{
			Dosage:       r.Dosage,
			Frequency:    r.Frequency,
			Doctor:       r.Doctor,
			Observations: r.Observations,
		},
	}
}

// StatusResponse is nil Message when nothing is shown.
type StatusResponse struct {
	State   submission.State `json:"state"`
	Version uint64           `json:"version"`
	Message *notify.Message  `json:"message"`
	Summary SummaryResponse  `json:"summary"`
}

type StateResponse struct {
	State submission.State `json:"state"`
}

// AttemptResponse is one attempt log entry. Errors is the stored JSON array.
type AttemptResponse struct {
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	Sink      string          `json:"sink"`
	Errors    json.RawMessage `json:"errors"`
	TraceID   string          `json:"trace_id,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type AttemptsResponse struct {
	OrderID  string            `json:"order_id"`
	Attempts []AttemptResponse `json:"attempts"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func attemptResponse(e attemptlog.Entry) AttemptResponse {
	errs := json.RawMessage(e.ErrorMessages)
	if !json.Valid(errs) {
		errs = json.RawMessage("[]")
	}
	return AttemptResponse{
		OrderID:   e.OrderID,
		Status:    string(e.Status),
		Sink:      e.Sink,
		Errors:    errs,
		TraceID:   e.TraceID,
		UpdatedAt: e.UpdatedAt,
	}
}

func summaryResponse(s catalog.Summary) SummaryResponse {
	return SummaryResponse{
		TotalUnits: s.TotalUnits,
		TotalPrice: s.TotalPrice,
		LineCount:  s.LineCount,
	}
}

func cartResponse(lines []catalog.Line) CartResponse {
	out := CartResponse{
		Lines:   make([]LineResponse, 0, len(lines)),
		Summary: summaryResponse(catalog.Summarize(lines)),
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, LineResponse{
			Name:      l.Item.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Item.Price,
			Subtotal:  l.Subtotal(),
		})
	}
	return out
}
