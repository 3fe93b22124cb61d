package intake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureHeaders(t *testing.T) {
	stale := []string{"Pedido", "Fecha"}
	row := []string{"ORD-1"}

	tests := []struct {
		name       string
		header     []string
		rows       [][]string
		policy     HeaderPolicy
		wantHeader []string
		wantRows   int
	}{
		{name: "emptySheet", policy: HeaderAppend, wantHeader: Headers},
		{name: "alreadyMatching", header: Headers, rows: [][]string{row}, policy: HeaderAppend, wantHeader: Headers, wantRows: 1},
		{name: "mismatchNoRows", header: stale, policy: HeaderAppend, wantHeader: Headers},
		{name: "mismatchWithRowsAppends", header: stale, rows: [][]string{row}, policy: HeaderAppend, wantHeader: stale, wantRows: 2},
		{name: "mismatchWithRowsReplaces", header: stale, rows: [][]string{row}, policy: HeaderReplace, wantHeader: Headers, wantRows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := &memorySheet{header: tt.header, rows: tt.rows}

			require.NoError(t, EnsureHeaders(context.Background(), sheet, tt.policy))

			assert.Equal(t, tt.wantHeader, sheet.header)
			assert.Len(t, sheet.rows, tt.wantRows)
			if tt.name == "mismatchWithRowsAppends" {
				assert.Equal(t, Headers, sheet.rows[1])
			}
		})
	}
}

func TestHeadersMatchIgnoresOrder(t *testing.T) {
	reversed := make([]string, len(Headers))
	for i, h := range Headers {
		reversed[len(Headers)-1-i] = h
	}

	assert.True(t, HeadersMatch(reversed, Headers))
	assert.False(t, HeadersMatch(Headers[:12], Headers))
}

func TestPrescriptionRowDefaultsTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	row := PrescriptionRow(validPrescription(), now)
	assert.Equal(t, "2026-03-01T12:00:00Z", row[1])

	p := validPrescription()
	p.Timestamp = ""
	row = PrescriptionRow(p, now)
	assert.Equal(t, "2026-01-02T03:04:05Z", row[1])
	assert.Equal(t, StatusPending, row[len(row)-1])
}

func TestParseHeaderPolicy(t *testing.T) {
	assert.Equal(t, HeaderReplace, ParseHeaderPolicy("replace"))
	assert.Equal(t, HeaderAppend, ParseHeaderPolicy(""))
	assert.Equal(t, HeaderAppend, ParseHeaderPolicy("bogus"))
}
