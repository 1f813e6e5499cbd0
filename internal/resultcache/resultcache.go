// Package resultcache is the redis-backed key-value cache (C8) behind both
// the route/date RiskPrediction keyspace and the LocationStats climatology
// keyspace. Bulk reads and writes are pipelined so map_bulk and the nightly
// scheduler's fan-out pay one round trip per batch instead of one per key.
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// TTL policy from the spec: bulk (scheduler-computed) predictions live a
// week, on-demand (predict_one cache-miss compute) predictions live an
// hour since they may be recomputed against slightly fresher data sooner,
// and location climatology lives a day.
const (
	BulkPredictionTTL     = 7 * 24 * time.Hour
	OnDemandPredictionTTL = time.Hour
	LocationStatsTTL      = 24 * time.Hour
)

// Client wraps a redis client with typed get/set for RiskPrediction and
// LocationStats, satisfying both locationstats.Store and the prediction
// cache interface internal/query depends on.
type Client struct {
	rdb *redis.Client
}

// New constructs a Client.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// PredictionKey formats the cache key for a (route, date) prediction:
// `stats:route:{id}:date:{YYYY-MM-DD}`.
func PredictionKey(routeID string, date time.Time) string {
	return fmt.Sprintf("stats:route:%s:date:%s", routeID, date.Format("2006-01-02"))
}

// GetOne returns the cached prediction for routeID/date, if present.
func (c *Client) GetOne(ctx context.Context, routeID string, date time.Time) (riskmodel.RiskPrediction, bool, error) {
	raw, err := c.rdb.Get(ctx, PredictionKey(routeID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return riskmodel.RiskPrediction{}, false, nil
	}
	if err != nil {
		return riskmodel.RiskPrediction{}, false, fmt.Errorf("resultcache: get %s: %w", routeID, err)
	}
	var pred riskmodel.RiskPrediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return riskmodel.RiskPrediction{}, false, fmt.Errorf("resultcache: unmarshal %s: %w", routeID, err)
	}
	return pred, true, nil
}

// SetOne caches a single prediction with ttl.
func (c *Client) SetOne(ctx context.Context, pred riskmodel.RiskPrediction, ttl time.Duration) error {
	raw, err := json.Marshal(pred)
	if err != nil {
		return fmt.Errorf("resultcache: marshal %s: %w", pred.RouteID, err)
	}
	if err := c.rdb.Set(ctx, PredictionKey(pred.RouteID, pred.Date), raw, ttl).Err(); err != nil {
		return fmt.Errorf("resultcache: set %s: %w", pred.RouteID, err)
	}
	return nil
}

// RouteDate identifies a single prediction lookup for GetMany.
type RouteDate struct {
	RouteID string
	Date    time.Time
}

// GetMany bulk-fetches predictions for every (routeID, date) pair in one
// pipelined round trip. Keys with no cached value are simply absent from
// the result map — a partial cache is the expected steady state for
// map_bulk, not an error.
func (c *Client) GetMany(ctx context.Context, keys []RouteDate) (map[RouteDate]riskmodel.RiskPrediction, error) {
	if len(keys) == 0 {
		return map[RouteDate]riskmodel.RiskPrediction{}, nil
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Get(ctx, PredictionKey(k.RouteID, k.Date))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("resultcache: pipeline get: %w", err)
	}

	result := make(map[RouteDate]riskmodel.RiskPrediction, len(keys))
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resultcache: read %s: %w", keys[i].RouteID, err)
		}
		var pred riskmodel.RiskPrediction
		if err := json.Unmarshal(raw, &pred); err != nil {
			return nil, fmt.Errorf("resultcache: unmarshal %s: %w", keys[i].RouteID, err)
		}
		result[keys[i]] = pred
	}
	return result, nil
}

// SetMany bulk-writes predictions in one pipelined round trip, all with
// the same ttl — used by the nightly scheduler after a fan-out compute
// pass.
func (c *Client) SetMany(ctx context.Context, preds []riskmodel.RiskPrediction, ttl time.Duration) error {
	if len(preds) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, pred := range preds {
		raw, err := json.Marshal(pred)
		if err != nil {
			return fmt.Errorf("resultcache: marshal %s: %w", pred.RouteID, err)
		}
		pipe.Set(ctx, PredictionKey(pred.RouteID, pred.Date), raw, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("resultcache: pipeline set: %w", err)
	}
	return nil
}

// Get implements locationstats.Store: reads a LocationStats by its
// already-formatted key.
func (c *Client) Get(ctx context.Context, key string) (riskmodel.LocationStats, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return riskmodel.LocationStats{}, false, nil
	}
	if err != nil {
		return riskmodel.LocationStats{}, false, fmt.Errorf("resultcache: get %s: %w", key, err)
	}
	var stats riskmodel.LocationStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return riskmodel.LocationStats{}, false, fmt.Errorf("resultcache: unmarshal %s: %w", key, err)
	}
	return stats, true, nil
}

// Set implements locationstats.Store.
func (c *Client) Set(ctx context.Context, key string, stats riskmodel.LocationStats, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("resultcache: marshal %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("resultcache: set %s: %w", key, err)
	}
	return nil
}
