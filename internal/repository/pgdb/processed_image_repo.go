package pgdb

import (
	"context"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/repository/pgdb/converter"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ProcessedImageRepo ведёт журнал обработанных изображений.
type ProcessedImageRepo struct {
	pool *pgxpool.Pool
	conv converter.ProcessedImageConverter
}

func NewProcessedImageRepo(pool *pgxpool.Pool, conv converter.ProcessedImageConverter) *ProcessedImageRepo {
	return &ProcessedImageRepo{
		pool: pool,
		conv: conv,
	}
}

// Save идемпотентно сохраняет результат обработки. Должен вызываться внутри транзакции.
func (p *ProcessedImageRepo) Save(ctx context.Context, image *domain.ProcessedImage) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := p.conv.ToModel(image)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO processed_images (
			content_hash,
			category,
			source_url,
			variants,
			processed_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (content_hash, category) DO UPDATE
		SET variants = EXCLUDED.variants,
			processed_at = EXCLUDED.processed_at;
	`

	if _, err := tx.Exec(ctx, query,
		model.ContentHash,
		model.Category,
		model.SourceURL,
		model.Variants,
		model.ProcessedAt,
	); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
