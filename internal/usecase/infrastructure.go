package usecase

import (
	"context"

	"github.com/collinlucke/baphomet-server/internal/domain"
)

type SourceFetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]byte, error)
	TMDBURL(path, size string) string
}

type ImageResizer interface {
	Resize(src []byte, size domain.SizeSpec, ratio domain.AspectRatio) ([]byte, error)
	ContentType(data []byte, size domain.SizeSpec) string
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
