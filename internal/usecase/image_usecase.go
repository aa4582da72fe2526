package usecase

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/collinlucke/baphomet-server/pkg/metrics"
	"github.com/collinlucke/baphomet-server/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const fallbackTMDBSize = "w500"

// ImageUseCase строит варианты изображения по каталогу размеров категории и сохраняет их в объектное хранилище.
// Все размеры обрабатываются последовательно, исходник скачивается не более одного раза за вызов.
type ImageUseCase struct {
	store    ObjectStore
	resizer  ImageResizer
	source   SourceFetcher
	cache    VariantCache
	observer metrics.Observer
	logger   logger.Logger
	now      func() time.Time

	// журнал обработки, может отсутствовать
	dbPool     transaction.Transactional
	imagesRepo ProcessedImageRepository
	outboxRepo OutboxRepository
}

func NewImageUC(
	store ObjectStore,
	resizer ImageResizer,
	source SourceFetcher,
	cache VariantCache,
	observer metrics.Observer,
	logger logger.Logger,
) *ImageUseCase {
	if observer == nil {
		observer = metrics.Nop{}
	}

	return &ImageUseCase{
		store:    store,
		resizer:  resizer,
		source:   source,
		cache:    cache,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// WithLedger включает запись результатов обработки и outbox-событий в PostgreSQL.
func (u *ImageUseCase) WithLedger(dbPool transaction.Transactional, imagesRepo ProcessedImageRepository, outboxRepo OutboxRepository) *ImageUseCase {
	u.dbPool = dbPool
	u.imagesRepo = imagesRepo
	u.outboxRepo = outboxRepo
	return u
}

// ProcessImage гарантирует наличие всех размеров категории в хранилище и возвращает их URL.
// Ошибка на любом этапе прерывает вызов целиком; уже загруженные размеры остаются в хранилище.
func (u *ImageUseCase) ProcessImage(ctx context.Context, req *ProcessImageReq) (domain.VariantResult, error) {
	const op = "ImageUseCase.ProcessImage"

	if err := validateSourceURL(req.SourceURL); err != nil {
		return nil, e.Wrap(op, err)
	}

	catalog, err := domain.CatalogFor(req.Category)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	hash := domain.HashSource(req.SourceURL)
	result := make(domain.VariantResult, len(catalog.Sizes))

	// Исходник скачивается только перед первым отсутствующим размером
	var src []byte
	for _, size := range catalog.Sizes {
		if err := ctx.Err(); err != nil {
			return nil, e.Wrap(op, err)
		}

		key := domain.ObjectKey(req.Category, size.Name, hash)

		u.logStage(key, StageCheckingExistence)
		if u.store.Exists(ctx, key) {
			u.logStage(key, StageExists)
			result[size.Name] = u.store.URLFor(key)
			continue
		}

		if src == nil {
			src, err = u.download(ctx, req.SourceURL, key)
			if err != nil {
				return nil, e.Wrap(op, err)
			}
		}

		data, err := u.render(src, size, catalog.AspectRatio, key)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		if err := u.upload(ctx, key, data, u.resizer.ContentType(data, size)); err != nil {
			return nil, e.Wrap(op, err)
		}

		u.logStage(key, StageExists)
		result[size.Name] = u.store.URLFor(key)
	}

	u.cacheVariants(ctx, req.Category, hash, result)
	u.record(ctx, hash, req, result)

	return result, nil
}

// GetImage возвращает URL одного размера. Если размера нет в хранилище, обрабатывается весь каталог.
func (u *ImageUseCase) GetImage(ctx context.Context, req *GetImageReq) (string, error) {
	const op = "ImageUseCase.GetImage"

	catalog, err := domain.CatalogFor(req.Category)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	sizeName := req.Size
	if sizeName == "" {
		sizeName = catalog.DefaultSize
	}
	if _, ok := catalog.Size(sizeName); !ok {
		return "", e.Wrap(op, e.ErrUnknownSize)
	}

	if err := validateSourceURL(req.SourceURL); err != nil {
		return "", e.Wrap(op, err)
	}

	key := domain.ObjectKey(req.Category, sizeName, domain.HashSource(req.SourceURL))

	if cached, ok := u.cachedURL(ctx, key); ok {
		return cached, nil
	}

	u.logStage(key, StageCheckingExistence)
	if u.store.Exists(ctx, key) {
		link := u.store.URLFor(key)
		u.storeCache(ctx, map[string]string{key: link})
		return link, nil
	}

	variants, err := u.ProcessImage(ctx, NewProcessImageReq(req.SourceURL, req.Category))
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return variants[sizeName], nil
}

// BatchProcessImages обрабатывает задачи по очереди. Ошибка одной задачи сохраняется в её результате
// и не влияет на остальные. Задача без ID получает идентификатор по своей позиции.
func (u *ImageUseCase) BatchProcessImages(ctx context.Context, items []domain.BatchItem) map[string]domain.BatchItemResult {
	results := make(map[string]domain.BatchItemResult, len(items))

	for i, item := range items {
		id := item.ID
		if id == "" {
			id = strconv.Itoa(i)
		}

		variants, err := u.ProcessImage(ctx, NewProcessImageReq(item.SourceURL, item.Category))
		if err != nil {
			u.logger.Warnf("batch item %s failed: %v", id, err)
			results[id] = domain.BatchItemResult{
				Success: false,
				Errors:  []string{err.Error()},
			}
			continue
		}

		results[id] = domain.BatchItemResult{
			Success:  true,
			Variants: variants,
		}
	}

	return results
}

// ResponsiveImageURLs раскладывает варианты по именованным точкам вёрстки.
func (u *ImageUseCase) ResponsiveImageURLs(ctx context.Context, req *ProcessImageReq) (domain.ResponsiveSet, error) {
	const op = "ImageUseCase.ResponsiveImageURLs"

	variants, err := u.ProcessImage(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	breakpoints := domain.BreakpointsFor(req.Category)
	set := make(domain.ResponsiveSet, len(breakpoints))
	for _, bp := range breakpoints {
		if link, ok := variants[bp.Size]; ok {
			set[bp.Name] = link
		}
	}

	return set, nil
}

// OptimizedImageURL возвращает URL варианта для относительного пути TMDB.
// При любой ошибке возвращается прямая ссылка на TMDB нужного размера, для пустого пути пустая строка.
func (u *ImageUseCase) OptimizedImageURL(ctx context.Context, tmdbPath string, category domain.Category, size string) string {
	const op = "ImageUseCase.OptimizedImageURL"

	if strings.TrimSpace(tmdbPath) == "" {
		return ""
	}

	link, err := u.GetImage(ctx, NewGetImageReq(u.source.TMDBURL(tmdbPath, domain.OriginalSize), category, size))
	if err == nil && link != "" {
		return link
	}
	if err != nil {
		u.logger.Warnf("%s: falling back to tmdb for %s: %v", op, tmdbPath, err)
	}

	if size == "" {
		size = fallbackTMDBSize
	}
	return u.source.TMDBURL(tmdbPath, size)
}

// ProcessMovieImages обрабатывает постеры и фоны фильмов одним пакетом.
// Идентификаторы задач: {id}_poster и {id}_backdrop.
func (u *ImageUseCase) ProcessMovieImages(ctx context.Context, movies ...domain.MovieImages) map[string]domain.BatchItemResult {
	items := make([]domain.BatchItem, 0, len(movies)*2)
	for _, m := range movies {
		if m.PosterPath != "" {
			items = append(items, domain.BatchItem{
				SourceURL: u.source.TMDBURL(m.PosterPath, domain.OriginalSize),
				Category:  domain.CategoryPoster,
				ID:        domain.PosterJobID(m.ID),
			})
		}
		if m.BackdropPath != "" {
			items = append(items, domain.BatchItem{
				SourceURL: u.source.TMDBURL(m.BackdropPath, domain.OriginalSize),
				Category:  domain.CategoryBackdrop,
				ID:        domain.BackdropJobID(m.ID),
			})
		}
	}

	if len(items) == 0 {
		return map[string]domain.BatchItemResult{}
	}

	return u.BatchProcessImages(ctx, items)
}

// download скачивает исходник. key указывает размер, для которого он понадобился.
func (u *ImageUseCase) download(ctx context.Context, sourceURL, key string) ([]byte, error) {
	u.logStage(key, StageDownloading)
	start := time.Now()

	src, err := u.source.Fetch(ctx, sourceURL)
	if err == nil && len(src) == 0 {
		err = e.ErrEmptySource
	}
	u.observer.ObserveStage(StageDownloading, err, time.Since(start))
	if err != nil {
		u.logStage(key, StageFailed)
		return nil, &e.StageError{Stage: StageDownloading, Key: key, Err: err}
	}

	return src, nil
}

func (u *ImageUseCase) render(src []byte, size domain.SizeSpec, ratio domain.AspectRatio, key string) ([]byte, error) {
	u.logStage(key, StageResizing)
	start := time.Now()

	data, err := u.resizer.Resize(src, size, ratio)
	u.observer.ObserveStage(StageResizing, err, time.Since(start))
	if err != nil {
		u.logStage(key, StageFailed)
		return nil, &e.StageError{Stage: StageResizing, Key: key, Err: err}
	}

	return data, nil
}

func (u *ImageUseCase) upload(ctx context.Context, key string, data []byte, contentType string) error {
	u.logStage(key, StageUploading)
	start := time.Now()

	err := u.store.Upload(ctx, key, data, contentType)
	u.observer.ObserveStage(StageUploading, err, time.Since(start))
	if err != nil {
		u.logStage(key, StageFailed)
		return &e.StageError{Stage: StageUploading, Key: key, Err: err}
	}

	return nil
}

func (u *ImageUseCase) logStage(key, stage string) {
	u.logger.Debugf("image %s: %s", key, stage)
}

func (u *ImageUseCase) cachedURL(ctx context.Context, key string) (string, bool) {
	if u.cache == nil {
		return "", false
	}

	link, ok, err := u.cache.GetURL(ctx, key)
	if err != nil {
		u.logger.Warnf("variant cache lookup failed for %s: %v", key, err)
		return "", false
	}

	return link, ok
}

func (u *ImageUseCase) cacheVariants(ctx context.Context, category domain.Category, hash domain.ContentHash, variants domain.VariantResult) {
	urls := make(map[string]string, len(variants))
	for sizeName, link := range variants {
		urls[domain.ObjectKey(category, sizeName, hash)] = link
	}
	u.storeCache(ctx, urls)
}

func (u *ImageUseCase) storeCache(ctx context.Context, urls map[string]string) {
	if u.cache == nil || len(urls) == 0 {
		return
	}

	if err := u.cache.SetURLs(ctx, urls); err != nil {
		u.logger.Warnf("failed to cache variant urls: %v", err)
	}
}

// record сохраняет результат и outbox-событие в одной транзакции. Ошибки только логируются:
// варианты уже лежат в хранилище, и повторный вызов восстановит запись.
func (u *ImageUseCase) record(ctx context.Context, hash domain.ContentHash, req *ProcessImageReq, variants domain.VariantResult) {
	const op = "ImageUseCase.record"

	if u.dbPool == nil || u.imagesRepo == nil || u.outboxRepo == nil {
		return
	}

	if err := u.recordTx(ctx, hash, req, variants); err != nil {
		u.logger.Errorf(err, "%s: failed to record processed image %s", op, hash)
	}
}

func (u *ImageUseCase) recordTx(ctx context.Context, hash domain.ContentHash, req *ProcessImageReq, variants domain.VariantResult) (err error) {
	const op = "ImageUseCase.recordTx"

	processedAt := u.now().UTC()
	event := domain.ImageProcessedEvent{
		EventID:     uuid.NewString(),
		ContentHash: hash,
		Category:    req.Category,
		SourceURL:   req.SourceURL,
		Variants:    variants,
		ProcessedAt: processedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return e.Wrap(op, err)
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, u.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
	}()
	ctx = tr.WithTx(ctx, tx.Transaction().(pgx.Tx))

	err = u.imagesRepo.Save(ctx, &domain.ProcessedImage{
		ContentHash: hash,
		Category:    req.Category,
		SourceURL:   req.SourceURL,
		Variants:    variants,
		ProcessedAt: processedAt,
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	_, err = u.outboxRepo.Create(ctx, NewOutboxEvent(event.EventID, EventTypeImageProcessed, string(hash), payload, processedAt))
	if err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func validateSourceURL(sourceURL string) error {
	if strings.TrimSpace(sourceURL) == "" {
		return e.ErrSourceURLRequired
	}

	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return e.ErrInvalidSourceURL
	}

	return nil
}
