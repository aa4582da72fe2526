package converter

import "time"

// VariantURLRedisModel - значение ключа variant:{objectKey}
type VariantURLRedisModel struct {
	Key      string    `json:"key"`
	URL      string    `json:"url"`
	CachedAt time.Time `json:"cached_at"`
}
