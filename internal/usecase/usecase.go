package usecase

import (
	"context"

	"github.com/collinlucke/baphomet-server/internal/domain"
)

type ImageUC interface {
	ProcessImage(ctx context.Context, req *ProcessImageReq) (domain.VariantResult, error)
	GetImage(ctx context.Context, req *GetImageReq) (string, error)
	BatchProcessImages(ctx context.Context, items []domain.BatchItem) map[string]domain.BatchItemResult
	ResponsiveImageURLs(ctx context.Context, req *ProcessImageReq) (domain.ResponsiveSet, error)
	OptimizedImageURL(ctx context.Context, tmdbPath string, category domain.Category, size string) string
	ProcessMovieImages(ctx context.Context, movies ...domain.MovieImages) map[string]domain.BatchItemResult
}
