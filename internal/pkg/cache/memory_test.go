package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache("widget")
	key := c.GenerateKey("pending", "order")
	assert.Equal(t, "widget:pending:order", key)

	v, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, c.Set(ctx, key, []byte(`{"a":1}`), 0))
	v, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	require.NoError(t, c.Delete(ctx, key))
	v, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache("ns")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	now = now.Add(2 * time.Minute)

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}
