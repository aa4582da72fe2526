package infrastructure

import (
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/gabriel-vasile/mimetype"
)

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Поддерживает jpeg, jpg, png, gif, webp. Возвращает ошибку e.ErrUnsupportedMediaType для неподдерживаемых типов.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/gif":
		return "gif", nil
	case "image/webp":
		return "webp", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}

// DetectImageMIME определяет MIME-тип изображения по первым байтам.
// Для нераспознанных данных возвращает application/octet-stream.
func DetectImageMIME(data []byte) string {
	mime := mimetype.Detect(data).String()
	if _, err := GetExtensionFromMIME(mime); err != nil {
		return "application/octet-stream"
	}
	return mime
}
