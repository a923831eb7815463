// Package redis 提供资产目录的读穿缓存装饰器。
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/equitysim/internal/asset/domain"
	"github.com/wyfcoding/equitysim/pkg/cache"
	"github.com/wyfcoding/equitysim/pkg/logger"
)

// 资产元数据变化极少，缓存一天
const assetTTL = 24 * time.Hour

type cachedDirectory struct {
	inner domain.Directory
	cache *cache.RedisCache
}

// NewCachedDirectory 包装底层目录，Get 优先命中 Redis
func NewCachedDirectory(inner domain.Directory, c *cache.RedisCache) domain.Directory {
	return &cachedDirectory{inner: inner, cache: c}
}

func (d *cachedDirectory) Get(ctx context.Context, sid string) (*domain.Asset, error) {
	key := fmt.Sprintf("asset:%s", sid)

	var asset domain.Asset
	err := d.cache.Get(ctx, key, &asset)
	if err == nil {
		return &asset, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// 缓存故障时降级到直查
		logger.Warn(ctx, "asset cache read failed, falling back", "sid", sid, "error", err)
	}

	got, err := d.inner.Get(ctx, sid)
	if err != nil {
		return nil, err
	}

	if err := d.cache.Set(ctx, key, got, assetTTL); err != nil {
		logger.Warn(ctx, "asset cache write failed", "sid", sid, "error", err)
	}
	return got, nil
}
