package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "catalog:version"
	// BumpChannel carries cache version bumps published by catalog writers.
	BumpChannel = "catalog.bump"
)

// Cache wraps Redis based snapshot caching with versioning controls.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("catalog cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates cached snapshots by incrementing the version and
// publishing the new value.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other processes
// until ctx is cancelled.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = BumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil && ver > 0 {
					_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
					continue
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}

func loadInto(ctx context.Context, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// CachedProvider decorates a Provider with the Redis snapshot cache. Concurrent
// misses for the same key share one upstream call.
type CachedProvider struct {
	next  Provider
	cache *Cache
	group singleflight.Group
}

// NewCachedProvider wraps next with cache.
func NewCachedProvider(next Provider, cache *Cache) *CachedProvider {
	return &CachedProvider{next: next, cache: cache}
}

// Products returns the cached product snapshot, loading it on a miss.
func (p *CachedProvider) Products(ctx context.Context) ([]ProductSnapshot, error) {
	var products []ProductSnapshot
	err := p.fetch(ctx, "products", &products, func(ctx context.Context) (interface{}, error) {
		return p.next.Products(ctx)
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Categories returns the cached category snapshot, loading it on a miss.
func (p *CachedProvider) Categories(ctx context.Context) ([]CategorySnapshot, error) {
	var categories []CategorySnapshot
	err := p.fetch(ctx, "categories", &categories, func(ctx context.Context) (interface{}, error) {
		return p.next.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// Warm loads both snapshots into the cache.
func (p *CachedProvider) Warm(ctx context.Context) error {
	if _, err := p.Products(ctx); err != nil {
		return err
	}
	_, err := p.Categories(ctx)
	return err
}

// Invalidate bumps the cache version so the next read reloads from upstream.
func (p *CachedProvider) Invalidate(ctx context.Context) error {
	return p.cache.Bump(ctx)
}

func (p *CachedProvider) fetch(ctx context.Context, name string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := p.cache.BuildKey(ctx, "catalog", name)
	if err != nil {
		return Unavailable("cache key "+name, err)
	}
	ch := p.group.DoChan(key, func() (interface{}, error) {
		var raw json.RawMessage
		if err := p.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return Unavailable("load "+name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Unavailable("load "+name, res.Err)
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}
