package domain

import "time"

// VariantResult - URL вариантов изображения по имени размера
type VariantResult map[string]string

// BatchItem - одна задача пакетной обработки
type BatchItem struct {
	SourceURL string   `json:"url"`
	Category  Category `json:"category"`
	ID        string   `json:"id"`
}

// BatchItemResult - итог обработки одной задачи пакета. Ошибка не прерывает остальные задачи.
type BatchItemResult struct {
	Success  bool          `json:"success"`
	Variants VariantResult `json:"variants,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

// ResponsiveSet - URL по именованным точкам адаптивной вёрстки (small, medium, ...)
type ResponsiveSet map[string]string

// Breakpoint связывает имя точки с размером из каталога.
type Breakpoint struct {
	Name string
	Size string
}

var breakpoints = map[Category][]Breakpoint{
	CategoryPoster: {
		{Name: "small", Size: "w185"},
		{Name: "medium", Size: "w342"},
		{Name: "large", Size: "w500"},
		{Name: "xlarge", Size: "w780"},
		{Name: OriginalSize, Size: OriginalSize},
	},
	CategoryBackdrop: {
		{Name: "small", Size: "w300"},
		{Name: "medium", Size: "w780"},
		{Name: "large", Size: "w1280"},
		{Name: OriginalSize, Size: OriginalSize},
	},
	CategoryProfile: {
		{Name: "small", Size: "w45"},
		{Name: "medium", Size: "w185"},
		{Name: "large", Size: "h632"},
		{Name: OriginalSize, Size: OriginalSize},
	},
}

// BreakpointsFor возвращает точки адаптивной вёрстки категории.
func BreakpointsFor(c Category) []Breakpoint {
	return append([]Breakpoint(nil), breakpoints[c]...)
}

// ImageProcessedEvent публикуется после успешной обработки всех размеров
type ImageProcessedEvent struct {
	EventID     string        `json:"event_id"`
	ContentHash ContentHash   `json:"content_hash"`
	Category    Category      `json:"category"`
	SourceURL   string        `json:"source_url"`
	Variants    VariantResult `json:"variants"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// ProcessedImage - запись журнала обработанных изображений
type ProcessedImage struct {
	ContentHash ContentHash
	Category    Category
	SourceURL   string
	Variants    VariantResult
	ProcessedAt time.Time
}
