package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/shopspring/decimal"
)

// Category описывает тип изображения и определяет набор размеров
type Category string

const (
	CategoryPoster   Category = "poster"
	CategoryProfile  Category = "profile"
	CategoryBackdrop Category = "backdrop"
)

// OriginalSize - размер, который хранится без перекодирования
const OriginalSize = "original"

// ParseCategory приводит строку к Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryPoster, CategoryProfile, CategoryBackdrop:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", e.ErrUnknownCategory, s)
	}
}

func (c Category) String() string {
	return string(c)
}

// SizeSpec описывает один вариант изображения. Нулевые Width/Height означают «не задано».
type SizeSpec struct {
	Name   string
	Width  int
	Height int
}

func (s SizeSpec) IsOriginal() bool {
	return s.Name == OriginalSize
}

// AspectRatio - отношение ширины к высоте, хранится как несократимая дробь.
type AspectRatio struct {
	Width  int64
	Height int64
}

// HeightFor возвращает round(width / ratio).
func (r AspectRatio) HeightFor(width int) int {
	return int(decimal.NewFromInt(int64(width)).
		Mul(decimal.NewFromInt(r.Height)).
		Div(decimal.NewFromInt(r.Width)).
		Round(0).
		IntPart())
}

// WidthFor возвращает round(height * ratio).
func (r AspectRatio) WidthFor(height int) int {
	return int(decimal.NewFromInt(int64(height)).
		Mul(decimal.NewFromInt(r.Width)).
		Div(decimal.NewFromInt(r.Height)).
		Round(0).
		IntPart())
}

// TargetBox вычисляет итоговый размер кадра для размера size.
// Для original и для спецификации без размеров ok == false.
func (r AspectRatio) TargetBox(size SizeSpec) (width, height int, ok bool) {
	switch {
	case size.IsOriginal():
		return 0, 0, false
	case size.Width > 0 && size.Height > 0:
		return size.Width, size.Height, true
	case size.Width > 0:
		return size.Width, r.HeightFor(size.Width), true
	case size.Height > 0:
		return r.WidthFor(size.Height), size.Height, true
	default:
		return 0, 0, false
	}
}

// SizeCatalog - упорядоченный набор размеров для категории
type SizeCatalog struct {
	Category    Category
	Sizes       []SizeSpec
	AspectRatio AspectRatio
	DefaultSize string
}

// Size ищет размер по имени.
func (c SizeCatalog) Size(name string) (SizeSpec, bool) {
	for _, s := range c.Sizes {
		if s.Name == name {
			return s, true
		}
	}
	return SizeSpec{}, false
}

// Names возвращает имена размеров в порядке каталога.
func (c SizeCatalog) Names() []string {
	names := make([]string, 0, len(c.Sizes))
	for _, s := range c.Sizes {
		names = append(names, s.Name)
	}
	return names
}

var catalogs = map[Category]SizeCatalog{
	CategoryPoster: {
		Category: CategoryPoster,
		Sizes: []SizeSpec{
			{Name: "w92", Width: 92},
			{Name: "w154", Width: 154},
			{Name: "w185", Width: 185},
			{Name: "w342", Width: 342},
			{Name: "w500", Width: 500},
			{Name: "w780", Width: 780},
			{Name: OriginalSize},
		},
		AspectRatio: AspectRatio{Width: 2, Height: 3},
		DefaultSize: "w342",
	},
	CategoryProfile: {
		Category: CategoryProfile,
		Sizes: []SizeSpec{
			{Name: "w45", Width: 45},
			{Name: "w185", Width: 185},
			{Name: "h632", Height: 632},
			{Name: OriginalSize},
		},
		AspectRatio: AspectRatio{Width: 2, Height: 3},
		DefaultSize: "w185",
	},
	CategoryBackdrop: {
		Category: CategoryBackdrop,
		Sizes: []SizeSpec{
			{Name: "w300", Width: 300},
			{Name: "w780", Width: 780},
			{Name: "w1280", Width: 1280},
			{Name: OriginalSize},
		},
		AspectRatio: AspectRatio{Width: 16, Height: 9},
		DefaultSize: "w780",
	},
}

// CatalogFor возвращает копию каталога размеров категории.
func CatalogFor(c Category) (SizeCatalog, error) {
	catalog, ok := catalogs[c]
	if !ok {
		return SizeCatalog{}, fmt.Errorf("%w: %q", e.ErrUnknownCategory, string(c))
	}
	catalog.Sizes = slices.Clone(catalog.Sizes)
	return catalog, nil
}
