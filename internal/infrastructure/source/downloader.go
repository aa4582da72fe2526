package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
)

const userAgent = "baphomet-images/1.0"

// Downloader скачивает исходные изображения по HTTP.
type Downloader struct {
	client   *http.Client
	baseURL  string
	maxBytes int64
	logger   logger.Logger
}

func NewDownloader(cfg *cfg.SourceCfg, logger logger.Logger) *Downloader {
	return NewDownloaderWithClient(&http.Client{Timeout: cfg.Timeout}, cfg, logger)
}

func NewDownloaderWithClient(client *http.Client, cfg *cfg.SourceCfg, logger logger.Logger) *Downloader {
	return &Downloader{
		client:   client,
		baseURL:  strings.TrimRight(cfg.TMDBImageBaseURL, "/"),
		maxBytes: cfg.MaxBytes,
		logger:   logger,
	}
}

// Fetch возвращает тело ответа. Любой статус кроме 2xx и любая сетевая ошибка дают e.ErrDownloadFailed.
func (d *Downloader) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	const op = "Downloader.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrDownloadFailed, err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrDownloadFailed, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, e.Wrap(op, fmt.Errorf("%w: %s returned status %d", e.ErrDownloadFailed, sourceURL, resp.StatusCode))
	}

	reader := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, d.maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: read body: %v", e.ErrDownloadFailed, err))
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s exceeds %d bytes", e.ErrDownloadFailed, sourceURL, d.maxBytes))
	}

	d.logger.Debugf("%s: downloaded %s (%d bytes) in %s", op, sourceURL, len(data), time.Since(start))
	return data, nil
}

// TMDBURL строит ссылку на изображение TMDB: {base}/{size}/{path}. Абсолютные URL возвращаются как есть.
func (d *Downloader) TMDBURL(path, size string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if size == "" {
		size = "original"
	}
	return d.baseURL + "/" + size + "/" + strings.TrimLeft(path, "/")
}
