// Package notify is the message-display contract between the order flow and
// whatever renders it: one current message with a kind, optionally hidden
// again after a delay.
package notify

import (
	"sync"
	"time"
)

// Kind selects how a message is styled.
type Kind string

const (
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is what the UI shows. Details carries itemized reasons, e.g. the
// validation errors under a generic headline.
type Message struct {
	Kind    Kind      `json:"kind"`
	Text    string    `json:"text"`
	Details []string  `json:"details,omitempty"`
	ShownAt time.Time `json:"shown_at"`
}

// Notifier displays and hides the current message.
type Notifier interface {
	Show(kind Kind, text string, details ...string)
	Hide()
}

// Board keeps the latest message in memory so a view can poll it.
type Board struct {
	mu      sync.Mutex
	current *Message
	seq     uint64
	now     func() time.Time
}

var _ Notifier = (*Board)(nil)

// NewBoard returns a board with nothing shown.
func NewBoard() *Board {
	return &Board{now: time.Now}
}

// Show replaces the current message.
func (b *Board) Show(kind Kind, text string, details ...string) {
	b.show(kind, text, details)
}

func (b *Board) show(kind Kind, text string, details []string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.current = &Message{
		Kind:    kind,
		Text:    text,
		Details: append([]string(nil), details...),
		ShownAt: b.now(),
	}
	return b.seq
}

// Hide clears the current message.
func (b *Board) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.current = nil
}

// Current returns the visible message, if any.
func (b *Board) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Message{}, false
	}
	return *b.current, true
}

// ShowFor shows a message and hides it after d, unless another message was
// shown or hidden in the meantime.
func (b *Board) ShowFor(d time.Duration, kind Kind, text string, details ...string) {
	seq := b.show(kind, text, details)

	time.AfterFunc(d, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.seq == seq {
			b.seq++
			b.current = nil
		}
	})
}

// HideAfter hides whatever n shows after d. Notifiers that support
// stale-safe hiding (Board) only hide the message that was current when the
// timer was armed.
func HideAfter(n Notifier, d time.Duration, kind Kind, text string, details ...string) {
	if b, ok := n.(*Board); ok {
		b.ShowFor(d, kind, text, details...)
		return
	}
	n.Show(kind, text, details...)
	time.AfterFunc(d, n.Hide)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Show(Kind, string, ...string) {}
func (Discard) Hide()                        {}
