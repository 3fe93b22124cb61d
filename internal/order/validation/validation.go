// Package validation checks order forms. Every rule is evaluated so that all
// problems can be reported at once; nothing short-circuits.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind names the rule an Issue failed.
type Kind string

const (
	KindRequired   Kind = "required"
	KindEmail      Kind = "email"
	KindPhone      Kind = "phone"
	KindNationalID Kind = "national_id"
	KindQuantity   Kind = "quantity"
	KindNoItems    Kind = "no_items"
)

// Issue is one failed rule.
type Issue struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result lists every failed rule. Valid is true when Issues is empty.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Errors returns the issue messages in rule order.
func (r Result) Errors() []string {
	out := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		out = append(out, is.Message)
	}
	return out
}

func (r *Result) add(kind Kind, field, msg string) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Field: field, Message: msg})
}

func (r *Result) finish() Result {
	r.Valid = len(r.Issues) == 0
	return *r
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
)

// IsValidEmail accepts the local@domain.tld shape.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// DigitCount counts the decimal digits in s.
func DigitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// IsValidPhone accepts digits, spaces, dashes, plus signs and parentheses with
// a digit count inside [minDigits, maxDigits]. maxDigits <= 0 disables the
// upper bound.
func IsValidPhone(phone string, minDigits, maxDigits int) bool {
	phone = strings.TrimSpace(phone)
	if !phoneRe.MatchString(phone) {
		return false
	}
	n := DigitCount(phone)
	if n < minDigits {
		return false
	}
	return maxDigits <= 0 || n <= maxDigits
}

// IsPositiveInt reports whether s parses as an integer >= 1.
func IsPositiveInt(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n >= 1
}

// Rules configures the per-variant checks.
type Rules struct {
	PhoneMinDigits     int
	PhoneMaxDigits     int
	ValidateNationalID bool
	NationalIDMin      int
	NationalIDMax      int
}

// DefaultRules is the cart variant: 8 to 15 phone digits and a 7 or 8
// digit national id.
func DefaultRules() Rules {
	return Rules{
		PhoneMinDigits:     8,
		PhoneMaxDigits:     15,
		ValidateNationalID: true,
		NationalIDMin:      7,
		NationalIDMax:      8,
	}
}

// Form is the customer side of the order form. Quantity is only present in
// the single-medication variant and is skipped when empty.
type Form struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Quantity   string `json:"quantity,omitempty"`
}

const (
	MsgNoItems = "Seleccione al menos un medicamento"
)

// Validate runs every rule against f. selectedItems is the number of catalog
// items with a positive quantity.
func (r Rules) Validate(f Form, selectedItems int) Result {
	var res Result

	required := []struct {
		field, label, value string
	}{
		{"name", "nombre", f.Name},
		{"national_id", "DNI", f.NationalID},
		{"phone", "teléfono", f.Phone},
		{"email", "email", f.Email},
	}
	for _, rf := range required {
		if strings.TrimSpace(rf.value) == "" {
			res.add(KindRequired, rf.field, fmt.Sprintf("El campo %s es requerido", rf.label))
		}
	}

	if strings.TrimSpace(f.Email) != "" && !IsValidEmail(f.Email) {
		res.add(KindEmail, "email", "El email no es válido")
	}

	if strings.TrimSpace(f.Phone) != "" && !IsValidPhone(f.Phone, r.PhoneMinDigits, r.PhoneMaxDigits) {
		res.add(KindPhone, "phone", r.phoneMessage())
	}

	if r.ValidateNationalID && strings.TrimSpace(f.NationalID) != "" {
		id := strings.TrimSpace(f.NationalID)
		n := DigitCount(id)
		if n != len(id) || n < r.NationalIDMin || n > r.NationalIDMax {
			res.add(KindNationalID, "national_id",
				fmt.Sprintf("El DNI debe tener entre %d y %d dígitos", r.NationalIDMin, r.NationalIDMax))
		}
	}

	if f.Quantity != "" && !IsPositiveInt(f.Quantity) {
		res.add(KindQuantity, "quantity", "La cantidad debe ser un número entero mayor a 0")
	}

	if selectedItems <= 0 {
		res.add(KindNoItems, "items", MsgNoItems)
	}

	return res.finish()
}

func (r Rules) phoneMessage() string {
	if r.PhoneMaxDigits > 0 {
		return fmt.Sprintf("El teléfono debe tener entre %d y %d dígitos", r.PhoneMinDigits, r.PhoneMaxDigits)
	}
	return fmt.Sprintf("El teléfono debe tener al menos %d dígitos", r.PhoneMinDigits)
}
