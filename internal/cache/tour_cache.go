// Package cache keeps optimization results in Redis so repeated deterministic
// requests skip the solver.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"donationroute/internal/model"
)

const DefaultTTL = 10 * time.Minute

type TourCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTourCache(rdb *redis.Client, ttl time.Duration) *TourCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TourCache{rdb: rdb, ttl: ttl}
}

// NewTourCacheFromURL parses a redis:// URL.
func NewTourCacheFromURL(url string, ttl time.Duration) (*TourCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewTourCache(redis.NewClient(opt), ttl), nil
}

// Cacheable reports whether a request always yields the same tour. Unseeded
// requests may pick a different genetic ordering on every call.
func Cacheable(o model.RouteOptions) bool { return o.Seed != 0 }

type keyInput struct {
	Tenant  string             `json:"t"`
	Start   model.GeoPoint     `json:"s"`
	Stops   []model.Stop       `json:"p"`
	Options model.RouteOptions `json:"o"`
}

// Key derives a stable cache key from the full request.
func Key(tenant string, start model.GeoPoint, stops []model.Stop, o model.RouteOptions) string {
	b, _ := json.Marshal(keyInput{Tenant: tenant, Start: start, Stops: stops, Options: o})
	sum := sha256.Sum256(b)
	return "tour:" + tenant + ":" + hex.EncodeToString(sum[:16])
}

func (c *TourCache) Get(ctx context.Context, key string) (model.TourResult, bool, error) {
	var res model.TourResult
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return res, false, nil
	}
	if err != nil {
		return res, false, err
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return res, false, fmt.Errorf("decode cached tour: %w", err)
	}
	return res, true, nil
}

func (c *TourCache) Set(ctx context.Context, key string, res model.TourResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

func (c *TourCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }
