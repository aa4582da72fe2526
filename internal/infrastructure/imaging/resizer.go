package imaging

import (
	"bytes"
	"fmt"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/infrastructure"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultQuality = 85
	jpegMIME       = "image/jpeg"
)

// Resizer строит варианты изображения: кадрирование по центру до целевого размера и перекодирование в JPEG.
type Resizer struct {
	quality int
}

func NewResizer(quality int) *Resizer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Resizer{quality: quality}
}

// Resize возвращает src без изменений для original, иначе JPEG размера size.
// Если задана только одна сторона, вторая вычисляется по ratio.
// JPEG кодируется как baseline: image/jpeg не умеет писать progressive.
func (r *Resizer) Resize(src []byte, size domain.SizeSpec, ratio domain.AspectRatio) ([]byte, error) {
	const op = "Resizer.Resize"

	width, height, ok := ratio.TargetBox(size)
	if !ok {
		return src, nil
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: decode: %v", e.ErrResizeFailed, err))
	}

	// cover: масштаб с сохранением пропорций и обрезка лишнего по центру
	out := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: encode: %v", e.ErrResizeFailed, err))
	}

	return buf.Bytes(), nil
}

// ContentType возвращает MIME-тип данных, которые Resize вернул для size.
func (r *Resizer) ContentType(data []byte, size domain.SizeSpec) string {
	if size.IsOriginal() {
		return infrastructure.DetectImageMIME(data)
	}
	return jpegMIME
}
