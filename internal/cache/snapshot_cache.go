package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	remainsSnapshotKeyPrefix = "remains_snapshot"
	snapshotScanBatchSize    = 100
)

// SnapshotCache keeps the last real detailed remains per tenant. It
// satisfies reconcile.SnapshotStore.
type SnapshotCache interface {
	Get(ctx context.Context, tenant string) (*domain.RemainsSnapshot, bool, error)
	Put(ctx context.Context, tenant string, snapshot *domain.RemainsSnapshot) error
	Invalidate(ctx context.Context, tenant string) error
	InvalidateAll(ctx context.Context) error
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSnapshotCache struct{}

// NewSnapshotCache returns a Redis backed cache, or a noop one when caching
// is disabled.
func NewSnapshotCache(cfg config.CacheConfig) (SnapshotCache, error) {
	if !cfg.Enabled {
		return &noopSnapshotCache{}, nil
	}

	client, err := dialRedis(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisSnapshotCache(client, cfg.SnapshotTTL()), nil
}

// NewRedisSnapshotCache wraps an existing client.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) SnapshotCache {
	return &redisSnapshotCache{client: client, ttl: ttl}
}

func NewNoopSnapshotCache() SnapshotCache {
	return &noopSnapshotCache{}
}

func (c *redisSnapshotCache) Get(ctx context.Context, tenant string) (*domain.RemainsSnapshot, bool, error) {
	payload, err := c.client.Get(ctx, buildSnapshotKey(tenant)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var snap domain.RemainsSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, false, fmt.Errorf("decode remains snapshot cache: %w", err)
	}

	return &snap, true, nil
}

func (c *redisSnapshotCache) Put(ctx context.Context, tenant string, snapshot *domain.RemainsSnapshot) error {
	if snapshot == nil {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode remains snapshot cache: %w", err)
	}

	if err := c.client.Set(ctx, buildSnapshotKey(tenant), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context, tenant string) error {
	return c.client.Del(ctx, buildSnapshotKey(tenant)).Err()
}

func (c *redisSnapshotCache) InvalidateAll(ctx context.Context) error {
	_, err := unlinkMatching(ctx, c.client, remainsSnapshotKeyPrefix+":*", snapshotScanBatchSize)
	return err
}

func (n *noopSnapshotCache) Get(ctx context.Context, tenant string) (*domain.RemainsSnapshot, bool, error) {
	return nil, false, nil
}

func (n *noopSnapshotCache) Put(ctx context.Context, tenant string, snapshot *domain.RemainsSnapshot) error {
	return nil
}

func (n *noopSnapshotCache) Invalidate(ctx context.Context, tenant string) error {
	return nil
}

func (n *noopSnapshotCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildSnapshotKey(tenant string) string {
	return fmt.Sprintf("%s:%s", remainsSnapshotKeyPrefix, tenantHash(tenant))
}

// tenantHash keeps arbitrary tenant names out of the key space.
func tenantHash(tenant string) string {
	normalized := strings.ToLower(strings.TrimSpace(tenant))
	if normalized == "" {
		return "default"
	}
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
