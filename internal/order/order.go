// Package order defines the order submission assembled at submit time from
// the customer form and the selected catalog lines.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
)

// Customer is the contact data typed into the form, trimmed.
type Customer struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Line is the immutable copy of a cart line taken when the order is built.
type Line struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Priced    bool            `json:"priced"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Clinical carries the prescription details the order API requires. The
// cart form does not collect them, so they are often empty.
type Clinical struct {
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Doctor       string `json:"doctor,omitempty"`
	Observations string `json:"observations,omitempty"`
}

// Submission is one order attempt. It is not mutated once handed to a sink.
type Submission struct {
	OrderID    string          `json:"order_id"`
	Customer   Customer        `json:"customer"`
	Clinical   Clinical        `json:"clinical"`
	Lines      []Line          `json:"lines"`
	TotalUnits int             `json:"total_units"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewOrderID returns ORD-<unix millis>-<random suffix>, unique per attempt.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// NewSubmission snapshots the cart lines and derives the totals.
func NewSubmission(c Customer, lines []catalog.Line, now time.Time) *Submission {
	sum := catalog.Summarize(lines)

	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		out = append(out, Line{
			Name:      l.Item.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Item.UnitPrice(),
			Priced:    l.Item.Priced(),
			Subtotal:  l.Subtotal(),
		})
	}

	return &Submission{
		OrderID: NewOrderID(now),
		Customer: Customer{
			Name:       strings.TrimSpace(c.Name),
			NationalID: strings.TrimSpace(c.NationalID),
			Phone:      strings.TrimSpace(c.Phone),
			Email:      strings.TrimSpace(c.Email),
		},
		Lines:      out,
		TotalUnits: sum.TotalUnits,
		TotalPrice: sum.TotalPrice,
		CreatedAt:  now.UTC(),
	}
}

// ItemsText renders the lines as "name xN" joined by ", ", the compact
// form used by the spreadsheet and relay sinks.
func (s *Submission) ItemsText() string {
	parts := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		parts = append(parts, fmt.Sprintf("%s x%d", l.Name, l.Quantity))
	}
	return strings.Join(parts, ", ")
}
