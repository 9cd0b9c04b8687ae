package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*SnapshotRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSnapshotRepository(client, ttl), mr
}

const snapshot = `[{"product_id":"p1","name":"Mug","unit_price":"9.5","quantity":2,"image_ref":"","available_stock":4}]`

func TestSnapshotRepository_Get(t *testing.T) {
	repo, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, mr.Set("cart:s1", snapshot))

	got, err := repo.Get(context.Background(), "cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, snapshot, string(got))
}

func TestSnapshotRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t, time.Hour)

	_, err := repo.Get(context.Background(), "cart:missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSnapshotRepository_SetAppliesTTL(t *testing.T) {
	repo, mr := setupTestRedis(t, 2*time.Hour)

	require.NoError(t, repo.Set(context.Background(), "cart:s1", []byte(snapshot)))

	stored, err := mr.Get("cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, snapshot, stored)
	assert.Equal(t, 2*time.Hour, mr.TTL("cart:s1"))

	mr.FastForward(3 * time.Hour)
	assert.False(t, mr.Exists("cart:s1"))
}

func TestSnapshotRepository_SetOverwritesAndRefreshesTTL(t *testing.T) {
	repo, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "cart:s1", []byte(`[]`)))
	mr.FastForward(30 * time.Minute)
	require.NoError(t, repo.Set(ctx, "cart:s1", []byte(snapshot)))

	assert.Equal(t, time.Hour, mr.TTL("cart:s1"))
	got, err := repo.Get(ctx, "cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, snapshot, string(got))
}

func TestSnapshotRepository_ZeroTTLPersists(t *testing.T) {
	repo, mr := setupTestRedis(t, 0)
	require.NoError(t, repo.Set(context.Background(), "cart:s1", []byte(`[]`)))
	assert.Equal(t, time.Duration(0), mr.TTL("cart:s1"))
}

func TestSnapshotRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, mr.Set("cart:s1", snapshot))

	require.NoError(t, repo.Delete(ctx, "cart:s1"))
	assert.False(t, mr.Exists("cart:s1"))

	// Deleting again is not an error.
	require.NoError(t, repo.Delete(ctx, "cart:s1"))
}

func TestSnapshotRepository_ConnectionError(t *testing.T) {
	repo, mr := setupTestRedis(t, time.Hour)
	mr.Close()
	ctx := context.Background()

	_, err := repo.Get(ctx, "cart:s1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, err.Error(), "redis get")

	err = repo.Set(ctx, "cart:s1", []byte(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set")
}
