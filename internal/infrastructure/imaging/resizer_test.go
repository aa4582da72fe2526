package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestResizeAspectRatios(t *testing.T) {
	src := encodePNG(t, 400, 400)
	r := NewResizer(0)

	tests := []struct {
		name  string
		size  domain.SizeSpec
		ratio domain.AspectRatio
		w, h  int
	}{
		{name: "poster w342", size: domain.SizeSpec{Name: "w342", Width: 342}, ratio: domain.AspectRatio{Width: 2, Height: 3}, w: 342, h: 513},
		{name: "backdrop w780", size: domain.SizeSpec{Name: "w780", Width: 780}, ratio: domain.AspectRatio{Width: 16, Height: 9}, w: 780, h: 439},
		{name: "profile h632", size: domain.SizeSpec{Name: "h632", Height: 632}, ratio: domain.AspectRatio{Width: 2, Height: 3}, w: 421, h: 632},
		{name: "explicit box", size: domain.SizeSpec{Name: "box", Width: 50, Height: 20}, ratio: domain.AspectRatio{Width: 2, Height: 3}, w: 50, h: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Resize(src, tt.size, tt.ratio)
			require.NoError(t, err)

			img := decodeJPEG(t, out)
			assert.Equal(t, tt.w, img.Bounds().Dx())
			assert.Equal(t, tt.h, img.Bounds().Dy())
			assert.Equal(t, "image/jpeg", r.ContentType(out, tt.size))
		})
	}
}

func TestResizeOriginalPassthrough(t *testing.T) {
	src := encodePNG(t, 10, 10)
	r := NewResizer(85)
	size := domain.SizeSpec{Name: domain.OriginalSize}

	out, err := r.Resize(src, size, domain.AspectRatio{Width: 2, Height: 3})
	require.NoError(t, err)
	assert.Equal(t, src, out)
	assert.Equal(t, "image/png", r.ContentType(out, size))
}

func TestResizeOriginalDoesNotDecode(t *testing.T) {
	r := NewResizer(85)
	junk := []byte("not an image")

	out, err := r.Resize(junk, domain.SizeSpec{Name: domain.OriginalSize}, domain.AspectRatio{Width: 2, Height: 3})
	require.NoError(t, err)
	assert.Equal(t, junk, out)
}

func TestResizeUndecodable(t *testing.T) {
	r := NewResizer(85)

	_, err := r.Resize([]byte("not an image"), domain.SizeSpec{Name: "w92", Width: 92}, domain.AspectRatio{Width: 2, Height: 3})
	require.ErrorIs(t, err, e.ErrResizeFailed)
}

func TestResizeDeterministic(t *testing.T) {
	src := encodePNG(t, 120, 80)
	r := NewResizer(85)
	size := domain.SizeSpec{Name: "w92", Width: 92}
	ratio := domain.AspectRatio{Width: 2, Height: 3}

	a, err := r.Resize(src, size, ratio)
	require.NoError(t, err)
	b, err := r.Resize(src, size, ratio)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
