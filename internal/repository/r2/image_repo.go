package r2

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/collinlucke/baphomet-server/pkg/metrics"
	"github.com/collinlucke/baphomet-server/pkg/sigv4"
)

const (
	cacheControl = "public, max-age=31536000, immutable"
	metaSource   = "tmdb"
	storageClass = "STANDARD"
	errBodyLimit = 1 << 10
	opHead       = "head"
	opPut        = "put"
	schemeSep    = "://"
)

// ImageRepo работает с бакетом R2 (или любым S3-совместимым хранилищем) через подписанные HTTP-запросы.
type ImageRepo struct {
	signer   *sigv4.Signer
	client   *http.Client
	cfg      *cfg.StorageCfg
	observer metrics.Observer
	logger   logger.Logger
	now      func() time.Time
}

func NewImageRepo(signer *sigv4.Signer, client *http.Client, cfg *cfg.StorageCfg, observer metrics.Observer, logger logger.Logger) *ImageRepo {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if observer == nil {
		observer = metrics.Nop{}
	}

	return &ImageRepo{
		signer:   signer,
		client:   client,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Exists выполняет подписанный HEAD. Любой ответ кроме 200 и любая сетевая ошибка означают «нет объекта».
func (i *ImageRepo) Exists(ctx context.Context, key string) bool {
	const op = "ImageRepo.Exists"

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, i.objectURL(key), nil)
	if err != nil {
		i.existenceFailed(op, key, err)
		return false
	}
	i.signer.SignRequest(req, "")

	start := time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		i.observer.ObserveStore(opHead, 0, err, time.Since(start))
		i.existenceFailed(op, key, err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		i.observer.ObserveStore(opHead, 0, nil, time.Since(start))
		return true
	case http.StatusNotFound:
		i.observer.ObserveStore(opHead, 0, nil, time.Since(start))
		return false
	default:
		err := &e.StoreError{Op: opHead, Key: key, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
		i.observer.ObserveStore(opHead, 0, err, time.Since(start))
		i.existenceFailed(op, key, err)
		return false
	}
}

// Upload выполняет подписанный PUT с неизменяемыми заголовками кэширования и метаданными источника.
func (i *ImageRepo) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	const op = "ImageRepo.Upload"

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, i.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return e.Wrap(op, &e.StoreError{Op: opPut, Key: key, Err: fmt.Errorf("%w: %v", e.ErrUploadFailed, err)})
	}
	i.signer.SignRequest(req, contentType)
	req.Header.Set("Cache-Control", cacheControl)
	req.Header.Set("X-Amz-Meta-Source", metaSource)
	req.Header.Set("X-Amz-Meta-Processed-At", i.now().UTC().Format(time.RFC3339))
	req.Header.Set("X-Amz-Storage-Class", storageClass)

	start := time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		storeErr := &e.StoreError{Op: opPut, Key: key, Err: fmt.Errorf("%w: %v", e.ErrUploadFailed, err)}
		i.observer.ObserveStore(opPut, int64(len(data)), storeErr, time.Since(start))
		return e.Wrap(op, storeErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		storeErr := &e.StoreError{
			Op:         opPut,
			Key:        key,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", e.ErrUploadFailed, strings.TrimSpace(string(body))),
		}
		i.observer.ObserveStore(opPut, int64(len(data)), storeErr, time.Since(start))
		return e.Wrap(op, storeErr)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	i.observer.ObserveStore(opPut, int64(len(data)), nil, time.Since(start))
	i.logger.Debugf("%s: uploaded %s (%d bytes)", op, key, len(data))
	return nil
}

// URLFor возвращает публичную ссылку на custom domain, если он настроен, иначе presigned GET.
func (i *ImageRepo) URLFor(key string) string {
	key = strings.TrimPrefix(key, "/")

	if domain := i.cfg.CustomDomain; domain != "" {
		if !strings.Contains(domain, schemeSep) {
			domain = "https://" + domain
		}
		return strings.TrimRight(domain, "/") + "/" + key
	}

	return i.signer.PresignedURL(key, i.cfg.PresignTTL)
}

func (i *ImageRepo) objectURL(key string) string {
	return i.signer.ObjectURL(key)
}

func (i *ImageRepo) existenceFailed(op, key string, err error) {
	i.observer.ExistenceCheckFailed()
	i.logger.Warnf("%s: existence check for %s failed, treating as missing: %v", op, key, err)
}
