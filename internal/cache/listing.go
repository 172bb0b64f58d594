// Package cache holds the Redis-backed listing cache. The presentation layer
// reads an owner's default bookmark listing far more often than it changes,
// so the first unfiltered page is kept in Redis and dropped on every mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/mwhite/marginalia/internal/domain"
)

// ListingCache caches one owner's default bookmark listing.
type ListingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

// NewListingCache wraps a Redis client. A non-positive ttl falls back to 60s.
func NewListingCache(client *redisv9.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ListingCache{client: client, ttl: ttl}
}

// Get returns the cached listing for ownerID. The second return value is
// false on a miss; a miss is not an error.
func (c *ListingCache) Get(ctx context.Context, ownerID string) (domain.BookmarkListing, bool, error) {
	raw, err := c.client.Get(ctx, listingKey(ownerID)).Result()
	if err == redisv9.Nil {
		return domain.BookmarkListing{}, false, nil
	}
	if err != nil {
		return domain.BookmarkListing{}, false, fmt.Errorf("cache.ListingCache.Get: %w", err)
	}

	var listing domain.BookmarkListing
	if err := json.Unmarshal([]byte(raw), &listing); err != nil {
		return domain.BookmarkListing{}, false, fmt.Errorf("cache.ListingCache.Get: unmarshal: %w", err)
	}
	return listing, true, nil
}

// Set stores the listing for ownerID with the configured TTL.
func (c *ListingCache) Set(ctx context.Context, ownerID string, listing domain.BookmarkListing) error {
	payload, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("cache.ListingCache.Set: marshal: %w", err)
	}
	if err := c.client.Set(ctx, listingKey(ownerID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache.ListingCache.Set: %w", err)
	}
	return nil
}

// Invalidate drops the cached listing for ownerID. Called after every
// mutating pipeline operation so subsequent reads reflect the change.
func (c *ListingCache) Invalidate(ctx context.Context, ownerID string) error {
	if err := c.client.Del(ctx, listingKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("cache.ListingCache.Invalidate: %w", err)
	}
	return nil
}

func listingKey(ownerID string) string {
	return "bookmarks:listing:" + ownerID
}
