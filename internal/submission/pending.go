package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jcmexdev/pharmacy-orders/internal/order"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/cache"
)

// ErrNoPending means the slot is empty or disabled.
var ErrNoPending = errors.New("submission: no pending order")

// PendingSlot holds at most one failed submission for manual recovery. Each
// Save overwrites the previous one.
type PendingSlot struct {
	cache cache.Cache
	key   string
}

// NewPendingSlot keeps the slot under a single key in c.
func NewPendingSlot(c cache.Cache) *PendingSlot {
	return &PendingSlot{cache: c, key: c.GenerateKey("pending", "order")}
}

// Save overwrites the slot with sub. It never expires.
func (p *PendingSlot) Save(ctx context.Context, sub *order.Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("submission: encode pending order: %w", err)
	}
	if err := p.cache.Set(ctx, p.key, raw, 0); err != nil {
		return fmt.Errorf("submission: save pending order: %w", err)
	}
	return nil
}

// Load returns ErrNoPending when nothing is stored.
func (p *PendingSlot) Load(ctx context.Context) (*order.Submission, error) {
	raw, err := p.cache.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("submission: read pending order: %w", err)
	}
	if raw == "" {
		return nil, ErrNoPending
	}
	var sub order.Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, fmt.Errorf("submission: decode pending order: %w", err)
	}
	return &sub, nil
}

// Clear empties the slot.
func (p *PendingSlot) Clear(ctx context.Context) error {
	if err := p.cache.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("submission: clear pending order: %w", err)
	}
	return nil
}
