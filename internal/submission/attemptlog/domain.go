// Package attemptlog records every state transition of an order submission
// attempt. Rows are append-only; the latest row per order id is the current
// state, and the trace id links a row to its distributed trace.
package attemptlog

import "time"

// Status is the step an entry records.
type Status string

const (
	StatusSubmitting Status = "SUBMITTING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusBackedUp   Status = "BACKED_UP"
	StatusHandoff    Status = "HANDOFF"
)

// Entry is one row of the log.
type Entry struct {
	OrderID string
	Status  Status
	// Sink names the destination, e.g. "api", "relay", "script", "whatsapp".
	Sink string
	// Payload is the JSON submission, written on SUBMITTING only.
	Payload string
	// ErrorMessages is a JSON array of failure reasons.
	ErrorMessages string
	TraceID       string
	SpanID        string
	UpdatedAt     time.Time
}
