package submission

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
	"github.com/jcmexdev/pharmacy-orders/internal/order"
)

func TestComposeMessageSkipsMissingFieldsAndPrices(t *testing.T) {
	sub := order.NewSubmission(order.Customer{Name: "Ana"}, []catalog.Line{
		{Item: catalog.Unpriced("Receta magistral"), Quantity: 1},
	}, time.Now())

	text := ComposeMessage(sub)

	assert.Equal(t, "*Nuevo pedido*\nNombre: Ana\n\n• Receta magistral x1\n\nTotal: $0.00", text)
}

func TestHandoffURLRoundTrips(t *testing.T) {
	text := "*Nuevo pedido*\nA & B x1 = $10.50"

	link := HandoffURL("(011) 1234", text)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/0111234", u.Path)
	assert.Equal(t, text, u.Query().Get("text"))
	assert.False(t, strings.Contains(u.RawQuery, "+"))
}

func TestScriptPayloadDateFormat(t *testing.T) {
	at := time.Date(2026, 3, 7, 9, 5, 3, 0, time.UTC)
	sub := order.NewSubmission(order.Customer{}, []catalog.Line{
		{Item: catalog.NewItem("A", decimal.NewFromInt(1)), Quantity: 2},
	}, at)

	p := NewScriptPayload(sub, time.UTC)

	assert.Equal(t, "7/3/2026", p.Fecha)
	assert.Equal(t, "09:05:03", p.Hora)
	assert.Equal(t, "2026-03-07T09:05:03Z", p.Timestamp)
	assert.Equal(t, "A x2", p.Medicamentos)
}

func TestNewSink(t *testing.T) {
	for _, kind := range []string{"api", "relay", "script"} {
		s, err := NewSink(kind, "http://localhost", nil)
		require.NoError(t, err)
		assert.Equal(t, kind, s.Name())
	}

	_, err := NewSink("fax", "http://localhost", nil)
	assert.Error(t, err)
	_, err = NewSink("api", "", nil)
	assert.Error(t, err)
}
