package minio

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/collinlucke/baphomet-server/pkg/metrics"
	"github.com/collinlucke/baphomet-server/pkg/sigv4"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const (
	cacheControl = "public, max-age=31536000, immutable"
	storageClass = "STANDARD"
)

// ImageRepo реализует хранилище вариантов поверх MinIO. Используется для локального окружения.
type ImageRepo struct {
	mc       *minio.Client
	cfg      *cfg.StorageCfg
	observer metrics.Observer
	logger   logger.Logger
}

func NewImageRepo(mc *minio.Client, cfg *cfg.StorageCfg, observer metrics.Observer, logger logger.Logger) *ImageRepo {
	if observer == nil {
		observer = metrics.Nop{}
	}

	return &ImageRepo{
		mc:       mc,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

// Exists проверяет объект через StatObject. Любая ошибка кроме NoSuchKey считается сбоем проверки.
func (i *ImageRepo) Exists(ctx context.Context, key string) bool {
	start := time.Now()
	_, err := i.mc.StatObject(ctx, i.cfg.BucketName, key, minio.StatObjectOptions{})
	if err == nil {
		i.observer.ObserveStore("head", 0, nil, time.Since(start))
		return true
	}

	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		i.observer.ObserveStore("head", 0, nil, time.Since(start))
		return false
	}

	i.observer.ObserveStore("head", 0, err, time.Since(start))
	i.observer.ExistenceCheckFailed()
	i.logger.Warnf("%s: existence check for %s failed, treating as missing: %v", whereami.WhereAmI(), key, err)
	return false
}

// Upload загружает вариант в MinIO.
func (i *ImageRepo) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	_, err := i.mc.PutObject(ctx, i.cfg.BucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
		StorageClass: storageClass,
		UserMetadata: map[string]string{
			"source":       "tmdb",
			"processed-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		storeErr := &e.StoreError{
			Op:         "put",
			Key:        key,
			StatusCode: minio.ToErrorResponse(err).StatusCode,
			Err:        fmt.Errorf("%w: %v", e.ErrUploadFailed, err),
		}
		i.observer.ObserveStore("put", int64(len(data)), storeErr, time.Since(start))
		return e.Wrap(whereami.WhereAmI(), storeErr)
	}

	i.observer.ObserveStore("put", int64(len(data)), nil, time.Since(start))
	return nil
}

// URLFor возвращает ссылку через custom domain или presigned GET от MinIO.
func (i *ImageRepo) URLFor(key string) string {
	if domain := i.cfg.CustomDomain; domain != "" {
		if !strings.Contains(domain, "://") {
			domain = "https://" + domain
		}
		return strings.TrimRight(domain, "/") + "/" + strings.TrimPrefix(key, "/")
	}

	ttl := i.cfg.PresignTTL
	if ttl <= 0 || ttl > sigv4.MaxPresignExpiry {
		ttl = sigv4.MaxPresignExpiry
	}

	u, err := i.mc.PresignedGetObject(context.Background(), i.cfg.BucketName, key, ttl, url.Values{})
	if err != nil {
		i.logger.Errorf(err, "%s: presign %s", whereami.WhereAmI(), key)
		return ""
	}

	return u.String()
}
