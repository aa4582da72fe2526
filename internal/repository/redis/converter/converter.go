package converter

import (
	"encoding/json"
	"time"
)

type VariantURLConverter interface {
	ToRedisModel(key, url string, cachedAt time.Time) *VariantURLRedisModel
	Marshal(model *VariantURLRedisModel) ([]byte, error)
	Unmarshal(data []byte) (*VariantURLRedisModel, error)
}

type Converter struct{}

func NewConverter() *Converter {
	return &Converter{}
}

func (Converter) ToRedisModel(key, url string, cachedAt time.Time) *VariantURLRedisModel {
	return &VariantURLRedisModel{
		Key:      key,
		URL:      url,
		CachedAt: cachedAt.UTC(),
	}
}

// Marshal сериализует модель в JSON для кэша
func (Converter) Marshal(model *VariantURLRedisModel) ([]byte, error) {
	return json.Marshal(model)
}

// Unmarshal десериализует JSON из кэша
func (Converter) Unmarshal(data []byte) (*VariantURLRedisModel, error) {
	var model VariantURLRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}

	return &model, nil
}
