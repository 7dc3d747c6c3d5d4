package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_engine/internal/logging"
)

type countingRepo struct {
	Repository
	gets int
}

func (r *countingRepo) Get(ctx context.Context, id string) (PricedAction, error) {
	r.gets++
	return r.Repository.Get(ctx, id)
}

func newCached(t *testing.T) (*Cached, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &countingRepo{Repository: NewMemoryRepository()}
	return NewCached(repo, client, time.Minute, logging.Discard()), repo, mr
}

func TestCached_ServesFromRedisUntilExpiry(t *testing.T) {
	ctx := context.Background()
	cached, repo, mr := newCached(t)

	a, err := cached.Get(ctx, "gift_teddy")
	require.NoError(t, err)
	assert.Equal(t, int64(500), a.Cost)
	assert.True(t, mr.Exists("catalog:action:gift_teddy"))

	_, err = cached.Get(ctx, "gift_teddy")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)

	mr.FastForward(2 * time.Minute)
	_, err = cached.Get(ctx, "gift_teddy")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.gets)
}

func TestCached_UnknownNotCached(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCached(t)

	_, err := cached.Get(ctx, "gift_missing")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.False(t, mr.Exists("catalog:action:gift_missing"))
}

func TestCached_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	cached, repo, mr := newCached(t)
	mr.Close()

	a, err := cached.Get(ctx, "gift_rose")
	require.NoError(t, err)
	assert.Equal(t, "gift_rose", a.ID)
	assert.Equal(t, 1, repo.gets)
}

func TestCached_ListActive(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCached(t)

	gifts, err := cached.ListActive(ctx, KindGift)
	require.NoError(t, err)
	require.Len(t, gifts, 3)
	assert.True(t, mr.Exists("catalog:list:gift"))

	again, err := cached.ListActive(ctx, KindGift)
	require.NoError(t, err)
	assert.Equal(t, gifts[0].ID, again[0].ID)
}
