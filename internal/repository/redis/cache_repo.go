package redis

import (
	"context"
	"errors"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/internal/repository/redis/converter"
	"github.com/collinlucke/baphomet-server/pkg/clients"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const keyPrefix = "variant:"

// CacheRepo кэширует URL вариантов в Redis.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.VariantURLConverter
	cfg    *cfg.CacheCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.VariantURLConverter,
	cfg *cfg.CacheCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetURL возвращает закэшированный URL по ключу объекта.
func (c *CacheRepo) GetURL(ctx context.Context, key string) (string, bool, error) {
	data, err := c.client.Client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, r.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := c.conv.Unmarshal(data)
	if err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return "", false, nil
	}

	if model.Key != key {
		c.logger.Warnf("Cache key mismatch: key: %s, model_key: %s", key, model.Key)
		if err := c.client.Client.Del(ctx, cacheKey(key)).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return "", false, nil
	}

	return model.URL, true, nil
}

// SetURLs кэширует URL одним pipeline с TTL из конфигурации.
func (c *CacheRepo) SetURLs(ctx context.Context, urls map[string]string) error {
	now := time.Now()

	pipeline := c.client.Client.Pipeline()
	for key, link := range urls {
		data, err := c.conv.Marshal(c.conv.ToRedisModel(key, link, now))
		if err != nil {
			c.logger.Warnf("Failed to marshal variant url for caching (key: %s): %v", key, e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		pipeline.Set(ctx, cacheKey(key), data, c.cfg.VariantTTL)
	}

	if _, err := pipeline.Exec(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// cacheKey возвращает Redis-ключ для ключа объекта
func cacheKey(objectKey string) string {
	return keyPrefix + objectKey
}
