package e

import (
	"errors"
	"fmt"
)

var (
	// Конфигурация
	ErrMissingConfig        = fmt.Errorf("missing required configuration")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки конвейера изображений
	ErrDownloadFailed = fmt.Errorf("source download failed")
	ErrResizeFailed   = fmt.Errorf("resize failed")
	ErrUploadFailed   = fmt.Errorf("upload failed")
	ErrEmptySource    = fmt.Errorf("source image is empty")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrUnknownCategory      = fmt.Errorf("unknown image category")
	ErrUnknownSize          = fmt.Errorf("unknown image size")
	ErrSourceURLRequired    = fmt.Errorf("source url is required")
	ErrInvalidSourceURL     = fmt.Errorf("source url must be absolute http(s) url")
	ErrNoImages             = fmt.Errorf("no images provided")
	ErrTooManyImages        = fmt.Errorf("too many images in batch")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// 5xx
	ErrInternalServerError = fmt.Errorf("internal server error")
	ErrBadGateway          = fmt.Errorf("upstream processing failed")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// StoreError - ошибка ответа объектного хранилища.
type StoreError struct {
	Op         string
	Key        string
	StatusCode int
	Err        error
}

func (s *StoreError) Error() string {
	if s.StatusCode != 0 {
		return fmt.Sprintf("store %s %s: status %d: %v", s.Op, s.Key, s.StatusCode, s.Err)
	}
	return fmt.Sprintf("store %s %s: %v", s.Op, s.Key, s.Err)
}

func (s *StoreError) Unwrap() error {
	return s.Err
}

// StageError указывает, на каком этапе конвейера и для какого ключа произошла ошибка.
type StageError struct {
	Stage string
	Key   string
	Err   error
}

func (s *StageError) Error() string {
	if s.Key == "" {
		return fmt.Sprintf("%s: %v", s.Stage, s.Err)
	}
	return fmt.Sprintf("%s %s: %v", s.Stage, s.Key, s.Err)
}

func (s *StageError) Unwrap() error {
	return s.Err
}

// IsStageError сообщает, произошла ли ошибка на одном из этапов конвейера.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
