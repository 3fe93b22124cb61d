package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/pharmacy-orders/internal/intake"
)

func openTemp(t *testing.T) *Sheet {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sheet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHeaderRow(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	h, err := s.HeaderRow(ctx)
	require.NoError(t, err)
	assert.Nil(t, h)

	require.NoError(t, s.SetHeaderRow(ctx, []string{"a", "b"}))
	require.NoError(t, s.SetHeaderRow(ctx, intake.Headers))

	h, err = s.HeaderRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, intake.Headers, h)
}

func TestRowsAndFind(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.AddRow(ctx, []string{"ORD-1", "t1", "Ana"}))
	require.NoError(t, s.AddRow(ctx, []string{"ORD-2", "t2", "Luis"}))
	require.NoError(t, s.AddRow(ctx, []string{"ORD-1", "t3", "Ana María"}))

	n, err := s.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	row, err := s.FindRow(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-1", "t3", "Ana María"}, row)

	_, err = s.FindRow(ctx, "ORD-9")
	assert.ErrorIs(t, err, intake.ErrRowNotFound)
}

func TestEnsureHeadersOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, intake.EnsureHeaders(ctx, s, intake.HeaderAppend))
	require.NoError(t, intake.EnsureHeaders(ctx, s, intake.HeaderAppend))

	h, err := s.HeaderRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, intake.Headers, h)

	n, err := s.RowCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
