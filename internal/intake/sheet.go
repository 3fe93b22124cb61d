// Package intake is the server side of the order sinks: the validating order
// API that appends rows to the order sheet, and the relay that only logs and
// forwards what it receives.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/pharmacy-orders/internal/order/validation"
)

// ErrRowNotFound is returned by FindRow when no row has the key.
var ErrRowNotFound = errors.New("intake: row not found")

// Sheet is a spreadsheet-like table: one optional header row followed by
// data rows. Rows are matched by their first cell.
type Sheet interface {
	// HeaderRow returns nil when no header row was set.
	HeaderRow(ctx context.Context) ([]string, error)
	SetHeaderRow(ctx context.Context, cells []string) error
	AddRow(ctx context.Context, cells []string) error
	// RowCount counts data rows only.
	RowCount(ctx context.Context) (int, error)
	FindRow(ctx context.Context, key string) ([]string, error)
}

// Headers is the fixed column layout of the order sheet.
var Headers = []string{
	"ID Pedido",
	"Timestamp",
	"Nombre Paciente",
	"DNI Paciente",
	"Teléfono Paciente",
	"Email Paciente",
	"Nombre Medicamento",
	"Dosificación",
	"Cantidad",
	"Frecuencia",
	"Médico Recetante",
	"Observaciones",
	"Estado",
}

// StatusPending is the status cell written for every new order.
const StatusPending = "Pendiente"

// HeaderPolicy decides what EnsureHeaders does when the sheet already has
// rows under different headers.
type HeaderPolicy string

const (
	// HeaderAppend writes the expected headers as a new row when the sheet
	// already holds data under different headers.
	HeaderAppend HeaderPolicy = "append"
	// HeaderReplace always overwrites a mismatched header row.
	HeaderReplace HeaderPolicy = "replace"
)

// ParseHeaderPolicy defaults to HeaderAppend for unknown values.
func ParseHeaderPolicy(s string) HeaderPolicy {
	if HeaderPolicy(s) == HeaderReplace {
		return HeaderReplace
	}
	return HeaderAppend
}

// HeadersMatch compares as sets of equal length; column order is ignored.
func HeadersMatch(current, expected []string) bool {
	if len(current) != len(expected) {
		return false
	}
	have := make(map[string]struct{}, len(current))
	for _, h := range current {
		have[h] = struct{}{}
	}
	for _, h := range expected {
		if _, ok := have[h]; !ok {
			return false
		}
	}
	return true
}

// EnsureHeaders makes sure the sheet carries Headers before a row is added.
func EnsureHeaders(ctx context.Context, sheet Sheet, policy HeaderPolicy) error {
	current, err := sheet.HeaderRow(ctx)
	if err != nil {
		return fmt.Errorf("intake: read header row: %w", err)
	}
	if len(current) > 0 && HeadersMatch(current, Headers) {
		return nil
	}

	if policy == HeaderAppend && len(current) > 0 {
		rows, err := sheet.RowCount(ctx)
		if err != nil {
			return fmt.Errorf("intake: count rows: %w", err)
		}
		if rows > 0 {
			if err := sheet.AddRow(ctx, Headers); err != nil {
				return fmt.Errorf("intake: append header row: %w", err)
			}
			return nil
		}
	}

	if err := sheet.SetHeaderRow(ctx, Headers); err != nil {
		return fmt.Errorf("intake: set header row: %w", err)
	}
	return nil
}

// PrescriptionRow maps an accepted prescription onto the sheet columns. A
// missing timestamp becomes now.
func PrescriptionRow(p validation.Prescription, now time.Time) []string {
	ts := p.Timestamp
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339)
	}
	return []string{
		p.OrderID,
		ts,
		p.PatientName,
		p.PatientDNI,
		p.PatientPhone,
		p.PatientEmail,
		p.MedicationName,
		p.MedicationDosage,
		p.MedicationQuantity,
		p.MedicationFrequency,
		p.DoctorName,
		p.Observations,
		StatusPending,
	}
}

// cell returns row[i], or "" when the row is short.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
