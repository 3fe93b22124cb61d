package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrEmptyName     = errors.New("catalog: item name is empty")
	ErrDuplicateItem = errors.New("catalog: duplicate item name")
)

// ChangeKind identifies which mutation produced a Change.
type ChangeKind string

const (
	ChangeLoaded      ChangeKind = "loaded"
	ChangeIncremented ChangeKind = "incremented"
	ChangeDecremented ChangeKind = "decremented"
	ChangeReset       ChangeKind = "reset"
)

// Change is delivered to subscribers after every effective mutation.
// Name and Quantity are only set for increments and decrements.
type Change struct {
	Kind     ChangeKind
	Name     string
	Quantity int
}

// Store owns the catalog items and the quantity per item name.
type Store struct {
	mu         sync.RWMutex
	items      []Item
	quantities map[string]int

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(Change)
}

// NewStore returns an empty store. Call Load before taking quantities.
func NewStore() *Store {
	return &Store{
		quantities: make(map[string]int),
		subs:       make(map[int]func(Change)),
	}
}

// Load replaces the items and zeroes every quantity. Names must be non-empty
// and unique; on error the previous catalog is kept untouched.
func (s *Store) Load(items []Item) error {
	next := make([]Item, 0, len(items))
	quantities := make(map[string]int, len(items))

	for i, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return fmt.Errorf("%w: position %d", ErrEmptyName, i)
		}
		if _, dup := quantities[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateItem, name)
		}
		it.Name = name
		next = append(next, it)
		quantities[name] = 0
	}

	s.mu.Lock()
	s.items = next
	s.quantities = quantities
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeLoaded})
	return nil
}

// Increment adds one unit of name. Unknown names are ignored and report false.
func (s *Store) Increment(name string) (int, bool) {
	s.mu.Lock()
	q, ok := s.quantities[name]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	q++
	s.quantities[name] = q
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeIncremented, Name: name, Quantity: q})
	return q, true
}

// Decrement removes one unit of name. Quantities never go below zero; a
// decrement at zero is a no-op and reports false.
func (s *Store) Decrement(name string) (int, bool) {
	s.mu.Lock()
	q, ok := s.quantities[name]
	if !ok || q == 0 {
		s.mu.Unlock()
		return q, false
	}
	q--
	s.quantities[name] = q
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeDecremented, Name: name, Quantity: q})
	return q, true
}

// Reset zeroes every quantity without touching the items.
func (s *Store) Reset() {
	s.mu.Lock()
	for name := range s.quantities {
		s.quantities[name] = 0
	}
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeReset})
}

// Has reports whether name is in the current catalog.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quantities[name]
	return ok
}

// Quantity returns the selected quantity for name, zero if unknown.
func (s *Store) Quantity(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quantities[name]
}

// Items returns a copy of the catalog in display order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Filter returns the items whose name contains query, case-insensitively,
// in catalog order. A blank query matches everything.
func (s *Store) Filter(query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.Items()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// Selected lists the items with a positive quantity in catalog order.
func (s *Store) Selected() []Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Selection
	for _, it := range s.items {
		if q := s.quantities[it.Name]; q > 0 {
			out = append(out, Selection{Name: it.Name, Quantity: q})
		}
	}
	return out
}

// Lines is Selected joined with the catalog entries.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Line
	for _, it := range s.items {
		if q := s.quantities[it.Name]; q > 0 {
			out = append(out, Line{Item: it, Quantity: q})
		}
	}
	return out
}

// Summarize recomputes the totals from scratch.
func (s *Store) Summarize() Summary {
	return Summarize(s.Lines())
}

// Subscribe registers fn for every future change. The returned func removes it.
// fn runs on the mutating goroutine after the store lock is released.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
