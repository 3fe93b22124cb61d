// Package catalog holds the orderable items and the quantity selected for each
// of them. The Store is the single owner of that state; views and the order
// flow read it through snapshots and mutate it only via Increment, Decrement,
// Reset and Load.
package catalog

import "github.com/shopspring/decimal"

// Item is a sellable product. Name is the identity key within one catalog load.
type Item struct {
	Name  string
	Price decimal.NullDecimal
}

// NewItem returns a priced item.
func NewItem(name string, price decimal.Decimal) Item {
	return Item{Name: name, Price: decimal.NullDecimal{Decimal: price, Valid: true}}
}

// Unpriced returns an item without a unit price.
func Unpriced(name string) Item {
	return Item{Name: name}
}

// Priced reports whether the item carries a unit price.
func (i Item) Priced() bool { return i.Price.Valid }

// UnitPrice returns the price, or zero for unpriced items.
func (i Item) UnitPrice() decimal.Decimal {
	if !i.Price.Valid {
		return decimal.Zero
	}
	return i.Price.Decimal
}
