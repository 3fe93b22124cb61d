package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog"
)

func openTemp(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "attempts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSaveAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := openTemp(t)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	entries := []*attemptlog.Entry{
		{OrderID: "ORD-1", Status: attemptlog.StatusSubmitting, Sink: "api", Payload: `{"order_id":"ORD-1"}`, ErrorMessages: "[]", UpdatedAt: base},
		{OrderID: "ORD-1", Status: attemptlog.StatusFailed, Sink: "api", ErrorMessages: `["timeout"]`, UpdatedAt: base.Add(time.Second)},
		{OrderID: "ORD-2", Status: attemptlog.StatusSucceeded, Sink: "relay", ErrorMessages: "[]", UpdatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, repo.Save(ctx, e))
	}

	hist, err := repo.History(ctx, "ORD-1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, `{"order_id":"ORD-1"}`, hist[0].Payload)
	assert.Equal(t, "", hist[1].Payload)
	assert.True(t, hist[0].UpdatedAt.Equal(base))

	latest, err := repo.Latest(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, attemptlog.StatusFailed, latest.Status)
	assert.Equal(t, `["timeout"]`, latest.ErrorMessages)
}

func TestHistoryNotFound(t *testing.T) {
	_, err := openTemp(t).History(context.Background(), "ORD-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
