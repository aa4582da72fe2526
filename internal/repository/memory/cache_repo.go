package memory

import (
	"context"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheRepo - кэш URL вариантов в памяти процесса. Используется, когда Redis не настроен.
type CacheRepo struct {
	cache *expirable.LRU[string, string]
}

func NewCacheRepo(cfg *cfg.CacheCfg) *CacheRepo {
	const defaultSize = 4096

	size := cfg.Size
	if size <= 0 {
		size = defaultSize
	}

	return &CacheRepo{
		cache: expirable.NewLRU[string, string](size, nil, cfg.VariantTTL),
	}
}

func (c *CacheRepo) GetURL(_ context.Context, key string) (string, bool, error) {
	link, ok := c.cache.Get(key)
	return link, ok, nil
}

func (c *CacheRepo) SetURLs(_ context.Context, urls map[string]string) error {
	for key, link := range urls {
		c.cache.Add(key, link)
	}
	return nil
}

// Len возвращает число записей в кэше.
func (c *CacheRepo) Len() int {
	return c.cache.Len()
}
