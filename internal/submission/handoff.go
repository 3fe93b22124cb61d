package submission

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jcmexdev/pharmacy-orders/internal/order"
)

const handoffBase = "https://wa.me/"

// Handoff is a prefilled message-app compose link for an order.
type Handoff struct {
	OrderID string `json:"order_id"`
	Text    string `json:"text"`
	URL     string `json:"url"`
}

// ComposeMessage renders the order as chat text: header, the customer fields
// that are present, one bullet per line and the grand total.
func ComposeMessage(sub *order.Submission) string {
	var b strings.Builder
	b.WriteString("*Nuevo pedido*\n")

	c := sub.Customer
	for _, f := range []struct{ label, value string }{
		{"Nombre", c.Name},
		{"DNI", c.NationalID},
		{"Teléfono", c.Phone},
		{"Email", c.Email},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
		}
	}

	b.WriteString("\n")
	for _, l := range sub.Lines {
		if l.Priced {
			fmt.Fprintf(&b, "• %s x%d = $%s\n", l.Name, l.Quantity, l.Subtotal.StringFixed(2))
		} else {
			fmt.Fprintf(&b, "• %s x%d\n", l.Name, l.Quantity)
		}
	}
	fmt.Fprintf(&b, "\nTotal: $%s", sub.TotalPrice.StringFixed(2))
	return b.String()
}

// HandoffURL builds the compose link. Non-digits are stripped from phone; an
// empty phone lets the user pick the recipient.
func HandoffURL(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	// QueryEscape turns spaces into '+', which chat apps render literally.
	return handoffBase + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
