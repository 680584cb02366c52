package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "officine:cache"
	versionPrefix = "officine:cache:version"
	// BumpChannel receives the scope of every invalidation.
	BumpChannel = "officine.cache.bump"
)

// Versioned is a Redis JSON cache whose keys embed a per-scope version.
// Bumping a scope orphans every key built under the previous version; the
// orphans expire through their TTL. A nil Versioned, or Redis errors, fall
// back to calling the loader directly.
type Versioned struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewVersioned instantiates the cache helper.
func NewVersioned(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Versioned {
	if logger == nil {
		logger = slog.Default()
	}
	return &Versioned{client: client, ttl: ttl, logger: logger}
}

// Version returns the current version of scope, initialising when missing.
func (c *Versioned) Version(ctx context.Context, scope string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionPrefix + ":" + scope
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX keeps a concurrent bump from being overwritten.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key of parts under the current scope version.
func (c *Versioned) BuildKey(ctx context.Context, scope string, parts ...string) (string, error) {
	ver, err := c.Version(ctx, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s:v%d", keyPrefix, scope, strings.Join(parts, ":"), ver), nil
}

// FetchJSON loads the cached value of parts into dest, or populates it from
// loader. Loader errors are returned and never cached.
func (c *Versioned) FetchJSON(ctx context.Context, scope string, dest any, loader func(context.Context) (any, error), parts ...string) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return load(ctx, dest, loader)
	}
	key, err := c.BuildKey(ctx, scope, parts...)
	if err != nil {
		c.logger.Warn("cache unavailable", slog.String("scope", scope), slog.Any("error", err))
		return load(ctx, dest, loader)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(payload, dest); err == nil {
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache read", slog.String("key", key), slog.Any("error", err))
		return load(ctx, dest, loader)
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
		c.logger.Warn("cache write", slog.String("key", key), slog.Any("error", err))
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates scope by incrementing its version and publishing the
// scope on BumpChannel.
func (c *Versioned) Bump(ctx context.Context, scope string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, versionPrefix+":"+scope).Err(); err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, scope).Err()
}

func load(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
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

// PharmacyScope names the cache scope of one pharmacy.
func PharmacyScope(id int64) string {
	return fmt.Sprintf("pharmacy:%d", id)
}

// UserScope names the cache scope of one user.
func UserScope(id int64) string {
	return fmt.Sprintf("user:%d", id)
}
