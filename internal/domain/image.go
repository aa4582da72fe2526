package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// ObjectExtension - расширение всех ключей, включая original.
const ObjectExtension = "jpg"

// ContentHash - идентичность исходного изображения: md5 от строки URL.
type ContentHash string

// HashSource вычисляет ContentHash для URL источника.
func HashSource(sourceURL string) ContentHash {
	sum := md5.Sum([]byte(sourceURL))
	return ContentHash(hex.EncodeToString(sum[:]))
}

// ObjectKey возвращает ключ объекта images/{category}/{size}/{hash}.jpg
func ObjectKey(category Category, sizeName string, hash ContentHash) string {
	return fmt.Sprintf("images/%s/%s/%s.%s", category, sizeName, hash, ObjectExtension)
}
