package catalog

import "github.com/shopspring/decimal"

// Selection is one selected item name with its quantity.
type Selection struct {
	Name     string
	Quantity int
}

// Line is a selected item joined with its catalog entry.
type Line struct {
	Item     Item
	Quantity int
}

// Subtotal is quantity times unit price; unpriced items contribute zero.
func (l Line) Subtotal() decimal.Decimal {
	return l.Item.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Summary is the derived cart totals.
type Summary struct {
	TotalUnits int
	TotalPrice decimal.Decimal
	LineCount  int
}

// Empty reports whether nothing is selected.
func (s Summary) Empty() bool { return s.LineCount == 0 }

// Summarize folds lines into totals. It holds no state, so calling it twice on
// the same lines always yields the same Summary.
func Summarize(lines []Line) Summary {
	s := Summary{TotalPrice: decimal.Zero}
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		s.TotalUnits += l.Quantity
		s.TotalPrice = s.TotalPrice.Add(l.Subtotal())
		s.LineCount++
	}
	return s
}
