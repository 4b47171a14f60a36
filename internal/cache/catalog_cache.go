package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/shelfplan/backend-go/internal/config"
	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	catalogKeyPrefix     = "restock:catalog"
	catalogScanBatchSize = 100
)

// CatalogCache keeps per-shop catalog snapshots close to the planner.
type CatalogCache interface {
	Get(ctx context.Context, shopID string) (*domain.CatalogSnapshot, bool, error)
	Set(ctx context.Context, snapshot domain.CatalogSnapshot) error
	Invalidate(ctx context.Context, shopID string) error
	InvalidateAll(ctx context.Context) error
}

type redisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCatalogCache struct{}

func NewCatalogCache(cfg config.CacheConfig) (CatalogCache, error) {
	if !cfg.Enabled {
		return &noopCatalogCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return newRedisCatalogCache(client, ttl), nil
}

func newRedisCatalogCache(client *redis.Client, ttl time.Duration) *redisCatalogCache {
	return &redisCatalogCache{client: client, ttl: ttl}
}

func NewNoopCatalogCache() CatalogCache {
	return &noopCatalogCache{}
}

func (c *redisCatalogCache) Get(ctx context.Context, shopID string) (*domain.CatalogSnapshot, bool, error) {
	payload, err := c.client.Get(ctx, buildCatalogKey(shopID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot domain.CatalogSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode catalog cache: %w", err)
	}

	return &snapshot, true, nil
}

func (c *redisCatalogCache) Set(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode catalog cache: %w", err)
	}

	if err := c.client.Set(ctx, buildCatalogKey(snapshot.ShopID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisCatalogCache) Invalidate(ctx context.Context, shopID string) error {
	if err := c.client.Del(ctx, buildCatalogKey(shopID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *redisCatalogCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, catalogKeyPrefix, catalogScanBatchSize)
}

func (c *noopCatalogCache) Get(ctx context.Context, shopID string) (*domain.CatalogSnapshot, bool, error) {
	return nil, false, nil
}

func (c *noopCatalogCache) Set(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	return nil
}

func (c *noopCatalogCache) Invalidate(ctx context.Context, shopID string) error {
	return nil
}

func (c *noopCatalogCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildCatalogKey hashes the shop id so arbitrary ids stay safe as redis keys.
func buildCatalogKey(shopID string) string {
	hash := sha1.Sum([]byte(strings.TrimSpace(shopID)))
	return fmt.Sprintf("%s:%s", catalogKeyPrefix, hex.EncodeToString(hash[:]))
}
