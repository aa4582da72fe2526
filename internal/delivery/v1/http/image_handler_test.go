package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageUC struct {
	getReq     *usecase.GetImageReq
	processReq *usecase.ProcessImageReq
	batch      []domain.BatchItem
	movies     []domain.MovieImages
	err        error
}

func (f *fakeImageUC) ProcessImage(_ context.Context, req *usecase.ProcessImageReq) (domain.VariantResult, error) {
	f.processReq = req
	if f.err != nil {
		return nil, f.err
	}
	return domain.VariantResult{"w92": "https://cdn/w92", domain.OriginalSize: "https://cdn/original"}, nil
}

func (f *fakeImageUC) GetImage(_ context.Context, req *usecase.GetImageReq) (string, error) {
	f.getReq = req
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn/" + req.Size, nil
}

func (f *fakeImageUC) BatchProcessImages(_ context.Context, items []domain.BatchItem) map[string]domain.BatchItemResult {
	f.batch = items
	out := make(map[string]domain.BatchItemResult, len(items))
	for _, it := range items {
		out[it.ID] = domain.BatchItemResult{Success: it.Category == domain.CategoryPoster}
	}
	return out
}

func (f *fakeImageUC) ResponsiveImageURLs(_ context.Context, req *usecase.ProcessImageReq) (domain.ResponsiveSet, error) {
	f.processReq = req
	if f.err != nil {
		return nil, f.err
	}
	return domain.ResponsiveSet{"small": "https://cdn/w185"}, nil
}

func (f *fakeImageUC) OptimizedImageURL(_ context.Context, path string, _ domain.Category, size string) string {
	return "https://image.tmdb.org/t/p/" + size + path
}

func (f *fakeImageUC) ProcessMovieImages(_ context.Context, movies ...domain.MovieImages) map[string]domain.BatchItemResult {
	f.movies = movies
	return map[string]domain.BatchItemResult{domain.PosterJobID(movies[0].ID): {Success: true}}
}

func newTestRouter(uc usecase.ImageUC) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.Nop{}, prometheus.NewRegistry()).Init(uc, 0)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetImage(t *testing.T) {
	uc := &fakeImageUC{}
	rec := do(t, newTestRouter(uc), http.MethodGet, "/api/v1/images?url=https://x/a.jpg&category=POSTER&size=w500", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp URLResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://cdn/w500", resp.URL)
	assert.Equal(t, domain.CategoryPoster, uc.getReq.Category)
	assert.Equal(t, "https://x/a.jpg", uc.getReq.SourceURL)
}

func TestGetImageErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		ucErr  error
		want   int
	}{
		{name: "missing url", target: "/api/v1/images?category=poster", want: http.StatusBadRequest},
		{name: "unknown category", target: "/api/v1/images?url=https://x/a.jpg&category=logo", want: http.StatusBadRequest},
		{name: "unknown size", target: "/api/v1/images?url=https://x/a.jpg&category=poster&size=w1", ucErr: e.ErrUnknownSize, want: http.StatusBadRequest},
		{
			name:   "stage failure",
			target: "/api/v1/images?url=https://x/a.jpg&category=poster",
			ucErr:  &e.StageError{Stage: usecase.StageDownloading, Key: "k", Err: e.ErrDownloadFailed},
			want:   http.StatusBadGateway,
		},
		{name: "internal", target: "/api/v1/images?url=https://x/a.jpg&category=poster", ucErr: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&fakeImageUC{err: tt.ucErr}), http.MethodGet, tt.target, "")
			assert.Equal(t, tt.want, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.want, resp.Code)
		})
	}
}

func TestProcessImage(t *testing.T) {
	uc := &fakeImageUC{}
	rec := do(t, newTestRouter(uc), http.MethodPost, "/api/v1/images/process", `{"url":"https://x/a.jpg","category":"poster"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProcessImageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Variants, 2)
}

func TestProcessImageFailureCarriesStage(t *testing.T) {
	uc := &fakeImageUC{err: &e.StageError{Stage: usecase.StageUploading, Key: "images/poster/w92/h.jpg", Err: e.ErrUploadFailed}}
	rec := do(t, newTestRouter(uc), http.MethodPost, "/api/v1/images/process", `{"url":"https://x/a.jpg","category":"poster"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp ProcessImageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "uploading")
	assert.Contains(t, resp.Message, "images/poster/w92/h.jpg")
}

func TestProcessImageBadBody(t *testing.T) {
	h := newTestRouter(&fakeImageUC{})

	rec := do(t, h, http.MethodPost, "/api/v1/images/process", `{"url":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/images/process", `{"url":"https://x/a.jpg","category":"logo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/images/process", `{"url":"https://x/a.jpg","category":"poster","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchProcess(t *testing.T) {
	uc := &fakeImageUC{}
	body := `{"images":[{"url":"https://x/a.jpg","category":"Poster","id":"a"},{"url":"https://x/b.jpg","category":"logo","id":"b"}]}`
	rec := do(t, newTestRouter(uc), http.MethodPost, "/api/v1/images/batch", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Results["a"].Success)
	assert.False(t, resp.Results["b"].Success)
	assert.Equal(t, domain.CategoryPoster, uc.batch[0].Category)
}

func TestBatchProcessLimits(t *testing.T) {
	h := newTestRouter(&fakeImageUC{})

	rec := do(t, h, http.MethodPost, "/api/v1/images/batch", `{"images":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	items := make([]string, maxBatchItems+1)
	for i := range items {
		items[i] = `{"url":"https://x/a.jpg","category":"poster"}`
	}
	rec = do(t, h, http.MethodPost, "/api/v1/images/batch", `{"images":[`+strings.Join(items, ",")+`]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResponsiveAndOptimized(t *testing.T) {
	h := newTestRouter(&fakeImageUC{})

	rec := do(t, h, http.MethodGet, "/api/v1/images/responsive?url=https://x/a.jpg&category=profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var set map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&set))
	assert.Equal(t, "https://cdn/w185", set["small"])

	rec = do(t, h, http.MethodGet, "/api/v1/images/optimized?path=/abc.jpg&category=poster&size=w342", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp URLResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://image.tmdb.org/t/p/w342/abc.jpg", resp.URL)
}

func TestProcessMovies(t *testing.T) {
	uc := &fakeImageUC{}
	rec := do(t, newTestRouter(uc), http.MethodPost, "/api/v1/images/movies", `{"movies":[{"id":"550","poster_path":"/p.jpg"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Results["550_poster"].Success)
	assert.Equal(t, "/p.jpg", uc.movies[0].PosterPath)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(&fakeImageUC{})

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
