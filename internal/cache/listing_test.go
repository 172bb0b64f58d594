package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhite/marginalia/internal/cache"
	"github.com/mwhite/marginalia/internal/domain"
)

// newTestCache connects to the Redis named by TEST_REDIS_ADDR, skipping the
// test when none is configured.
func newTestCache(t *testing.T) *cache.ListingCache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping cache integration test")
	}

	client, err := cache.NewRedisClient(context.Background(), addr, os.Getenv("TEST_REDIS_PASSWORD"))
	require.NoError(t, err, "connect to test redis")
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewListingCache(client, time.Minute)
}

func TestListingCache_MissThenHit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	owner := "test-owner-" + uuid.NewString()

	_, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok, "unknown owner starts as a miss")

	listing := domain.BookmarkListing{
		Bookmarks: []domain.Bookmark{{
			ID:      uuid.New(),
			URL:     "https://example.com",
			Title:   "Example",
			Summary: "a summary",
			Tags:    []domain.Tag{{ID: uuid.New(), Name: "go"}},
		}},
		Total: 41,
	}
	require.NoError(t, c.Set(ctx, owner, listing))
	t.Cleanup(func() { _ = c.Invalidate(ctx, owner) })

	got, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(41), got.Total)
	require.Len(t, got.Bookmarks, 1)
	assert.Equal(t, listing.Bookmarks[0].ID, got.Bookmarks[0].ID)
	assert.Equal(t, "Example", got.Bookmarks[0].Title)
	require.Len(t, got.Bookmarks[0].Tags, 1)
	assert.Equal(t, "go", got.Bookmarks[0].Tags[0].Name)
}

func TestListingCache_Invalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	owner := "test-owner-" + uuid.NewString()

	require.NoError(t, c.Set(ctx, owner, domain.BookmarkListing{Total: 1}))
	require.NoError(t, c.Invalidate(ctx, owner))

	_, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok, "invalidation must turn the next read into a miss")
}

func TestListingCache_OwnersIsolated(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	ownerA := "test-owner-" + uuid.NewString()
	ownerB := "test-owner-" + uuid.NewString()

	require.NoError(t, c.Set(ctx, ownerA, domain.BookmarkListing{Total: 1}))
	t.Cleanup(func() { _ = c.Invalidate(ctx, ownerA) })

	_, ok, err := c.Get(ctx, ownerB)
	require.NoError(t, err)
	assert.False(t, ok)
}
