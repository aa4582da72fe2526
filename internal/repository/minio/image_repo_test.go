package minio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, endpoint string) *minio.Client {
	t.Helper()
	u, err := url.Parse(endpoint)
	require.NoError(t, err)

	mc, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return mc
}

func TestURLForCustomDomain(t *testing.T) {
	repo := NewImageRepo(newTestClient(t, "http://127.0.0.1:9000"), &cfg.StorageCfg{
		BucketName:   "baphomet-images",
		CustomDomain: "cdn.example.com",
	}, nil, logger.Nop{})

	assert.Equal(t, "https://cdn.example.com/images/poster/w92/abc.jpg", repo.URLFor("images/poster/w92/abc.jpg"))
}

func TestURLForPresigned(t *testing.T) {
	repo := NewImageRepo(newTestClient(t, "http://127.0.0.1:9000"), &cfg.StorageCfg{
		BucketName: "baphomet-images",
		PresignTTL: time.Hour,
	}, nil, logger.Nop{})

	link := repo.URLFor("images/poster/w92/abc.jpg")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/baphomet-images/images/poster/w92/abc.jpg", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestURLForPresignedClampsTTL(t *testing.T) {
	repo := NewImageRepo(newTestClient(t, "http://127.0.0.1:9000"), &cfg.StorageCfg{
		BucketName: "baphomet-images",
		PresignTTL: 8 * 24 * time.Hour,
	}, nil, logger.Nop{})

	link := repo.URLFor("images/poster/w92/abc.jpg")
	require.NotEmpty(t, link)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "604800", u.Query().Get("X-Amz-Expires"))
}

func TestExistsAndUploadAgainstFakeServer(t *testing.T) {
	var puts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && strings.HasSuffix(r.URL.Path, "/present.jpg"):
			w.Header().Set("Content-Length", "4")
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/fail.jpg"):
			w.WriteHeader(http.StatusForbidden)
		case r.Method == http.MethodPut:
			puts++
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	repo := NewImageRepo(newTestClient(t, srv.URL), &cfg.StorageCfg{BucketName: "bucket"}, nil, logger.Nop{})
	ctx := context.Background()

	assert.True(t, repo.Exists(ctx, "images/poster/w92/present.jpg"))
	assert.False(t, repo.Exists(ctx, "images/poster/w92/absent.jpg"))

	require.NoError(t, repo.Upload(ctx, "images/poster/w92/new.jpg", []byte("jpeg"), "image/jpeg"))
	assert.Equal(t, 1, puts)

	err := repo.Upload(ctx, "images/poster/w92/fail.jpg", []byte("jpeg"), "image/jpeg")
	require.ErrorIs(t, err, e.ErrUploadFailed)
}
