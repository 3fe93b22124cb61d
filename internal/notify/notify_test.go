package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardShowHide(t *testing.T) {
	b := NewBoard()

	_, ok := b.Current()
	assert.False(t, ok)

	b.Show(KindError, "fallo", "a", "b")
	msg, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, KindError, msg.Kind)
	assert.Equal(t, "fallo", msg.Text)
	assert.Equal(t, []string{"a", "b"}, msg.Details)

	b.Hide()
	_, ok = b.Current()
	assert.False(t, ok)
}

func TestBoardShowForHidesAfterDelay(t *testing.T) {
	b := NewBoard()

	b.ShowFor(20*time.Millisecond, KindError, "temporal")

	_, ok := b.Current()
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		_, visible := b.Current()
		return !visible
	}, time.Second, 5*time.Millisecond)
}

func TestBoardShowForKeepsNewerMessage(t *testing.T) {
	b := NewBoard()

	b.ShowFor(10*time.Millisecond, KindError, "viejo")
	b.Show(KindLoading, "nuevo")
	time.Sleep(40 * time.Millisecond)

	msg, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "nuevo", msg.Text)
}
