package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL bounds how stale the public doctor list may get when
	// an invalidation is missed.
	DefaultCacheTTL = 10 * time.Minute

	doctorListKey = CacheKeyPrefix + "doctors:list"
)

// DoctorCache caches the public doctor list. A nil client disables it.
type DoctorCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewDoctorCache(client redis.UniversalClient, ttl time.Duration) *DoctorCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DoctorCache{client: client, ttl: ttl}
}

// Get returns the cached list. A miss or a Redis failure both report false.
func (c *DoctorCache) Get(ctx context.Context) ([]models.DoctorListing, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, doctorListKey).Bytes()
	if err != nil {
		return nil, false
	}
	var doctors []models.DoctorListing
	if err := json.Unmarshal(val, &doctors); err != nil {
		return nil, false
	}
	return doctors, true
}

func (c *DoctorCache) Set(ctx context.Context, doctors []models.DoctorListing) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(doctors)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, doctorListKey, data, c.ttl).Err()
}

// Invalidate drops the cached list. Called whenever a doctor or a slot
// map changes.
func (c *DoctorCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, doctorListKey).Err()
}
