package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/poimap/internal/core/ports"
)

func TestCache_SetGetDelete(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 60))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 10))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	now = now.Add(11 * time.Second)
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestCache_Purge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 1))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 100))
	now = now.Add(2 * time.Second)

	assert.Equal(t, 1, c.Purge())
}
