package usecase

import (
	"context"
	"time"

	"github.com/collinlucke/baphomet-server/internal/domain"
)

// ObjectStore - S3-совместимое хранилище вариантов.
// Exists никогда не возвращает ошибку: любой сбой проверки считается отсутствием объекта.
type ObjectStore interface {
	Exists(ctx context.Context, key string) bool
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	URLFor(key string) string
}

// VariantCache хранит уже разрешённые URL по ключу объекта.
type VariantCache interface {
	GetURL(ctx context.Context, key string) (string, bool, error)
	SetURLs(ctx context.Context, urls map[string]string) error
}

type ProcessedImageRepository interface {
	Save(ctx context.Context, image *domain.ProcessedImage) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	// ReleaseStale возвращает в pending события, застрявшие в processing дольше olderThan.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
