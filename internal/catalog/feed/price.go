package feed

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice reads a human formatted price such as "$ 1.234,50", "1,234.50"
// or "2500". Currency symbols and spaces are dropped, thousands separators
// removed and the decimal separator normalized to a dot. Only strictly
// positive amounts are accepted.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return decimal.Zero, false
	}

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			if frac := len(s) - lastComma - 1; frac >= 1 && frac <= 2 {
				return strings.Replace(s, ",", ".", 1)
			}
		}
		return strings.ReplaceAll(s, ",", "")

	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || (len(s)-lastDot-1 == 3 && lastDot > 0) {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}
