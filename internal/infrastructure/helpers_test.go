package infrastructure

import (
	"testing"

	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExtensionFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		ext  string
	}{
		{mime: "image/jpeg", ext: "jpg"},
		{mime: "image/jpg", ext: "jpg"},
		{mime: "image/png", ext: "png"},
		{mime: "image/gif", ext: "gif"},
		{mime: "image/webp", ext: "webp"},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			ext, err := GetExtensionFromMIME(tt.mime)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, ext)
		})
	}

	ext, err := GetExtensionFromMIME("text/plain")
	require.ErrorIs(t, err, e.ErrUnsupportedMediaType)
	assert.Equal(t, "bin", ext)
}

func TestDetectImageMIME(t *testing.T) {
	jpegHeader := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngHeader := []byte("\x89PNG\x0D\x0A\x1A\x0A")
	gifHeader := []byte("GIF89a")

	assert.Equal(t, "image/jpeg", DetectImageMIME(jpegHeader))
	assert.Equal(t, "image/png", DetectImageMIME(pngHeader))
	assert.Equal(t, "image/gif", DetectImageMIME(gifHeader))
	assert.Equal(t, "application/octet-stream", DetectImageMIME([]byte("hello world")))
}
