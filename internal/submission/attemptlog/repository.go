package attemptlog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by readers when an order id has no entries.
var ErrNotFound = errors.New("attemptlog: no attempts for order")

// Repository persists entries. Save appends; it never updates.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
}

// Reader looks entries up by order id. History is oldest first and Latest is
// the current state; both return ErrNotFound for unknown ids.
type Reader interface {
	History(ctx context.Context, orderID string) ([]Entry, error)
	Latest(ctx context.Context, orderID string) (*Entry, error)
}
