package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carefinder/internal/domain/providers"
)

func TestMemoryAdapter_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAdapter(8, time.Minute)

	_, err := c.Get(ctx, "geo:BN214YB")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "geo:BN214YB", []byte(`{"lat":50.77,"lon":0.28}`), 60))
	v, err := c.Get(ctx, "geo:BN214YB")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":50.77,"lon":0.28}`, string(v))

	require.NoError(t, c.Delete(ctx, "geo:BN214YB"))
	_, err = c.Get(ctx, "geo:BN214YB")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestMemoryAdapter_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAdapter(2, time.Minute)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 60))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 60))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 60))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryAdapter_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAdapter(2, 20*time.Millisecond)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 60))
	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "a")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryAdapter_HonoursPerEntryExpiration(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	c := newMemoryAdapter(8, 0, func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "/places/ae-1", []byte("a"), 600))
	require.NoError(t, c.Set(ctx, "/geocode?postcode=BN21", []byte("b"), 3600))
	require.NoError(t, c.Set(ctx, "forever", []byte("c"), 0))

	now = now.Add(599 * time.Second)
	_, err := c.Get(ctx, "/places/ae-1")
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "/places/ae-1")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = c.Get(ctx, "/geocode?postcode=BN21")
	assert.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = c.Get(ctx, "/geocode?postcode=BN21")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}
