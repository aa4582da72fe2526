package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/pkg/e"
)

const (
	maxRequestBody = 1 << 20
	maxBatchItems  = 100
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ToHTTPResponse сопоставляет ошибку коду ответа. Для 4xx клиенту уходит текст
// ошибки, ошибки этапов конвейера и прочие отдаются без подробностей.
func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrUnknownCategory),
		errors.Is(err, e.ErrUnknownSize),
		errors.Is(err, e.ErrSourceURLRequired),
		errors.Is(err, e.ErrInvalidSourceURL),
		errors.Is(err, e.ErrNoImages),
		errors.Is(err, e.ErrTooManyImages),
		errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, e.ErrUnsupportedMediaType.Error()
	case e.IsStageError(err):
		return http.StatusBadGateway, e.ErrBadGateway.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса не больше maxRequestBody и отвергает неизвестные поля.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: %s", e.ErrUnsupportedMediaType, ct)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", e.ErrStatusBadRequest, err)
	}
	return nil
}

// parseSourceQuery достаёт url и category из query-строки.
func parseSourceQuery(r *http.Request) (string, domain.Category, error) {
	q := r.URL.Query()

	sourceURL := strings.TrimSpace(q.Get("url"))
	if sourceURL == "" {
		return "", "", e.ErrSourceURLRequired
	}

	category, err := domain.ParseCategory(q.Get("category"))
	if err != nil {
		return "", "", err
	}

	return sourceURL, category, nil
}

func validateBatch(items []domain.BatchItem) error {
	if len(items) == 0 {
		return e.ErrNoImages
	}
	if len(items) > maxBatchItems {
		return fmt.Errorf("%w: %d > %d", e.ErrTooManyImages, len(items), maxBatchItems)
	}
	return nil
}
