package converter

import "time"

// ProcessedImageModel представляет запись таблицы processed_images в PostgreSQL.
type ProcessedImageModel struct {
	ContentHash string    `db:"content_hash"`
	Category    string    `db:"category"`
	SourceURL   string    `db:"source_url"`
	Variants    []byte    `db:"variants"` // jsonb: {size: url}
	ProcessedAt time.Time `db:"processed_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID           int64      `db:"id"`
	EventID      string     `db:"event_id"`
	EventType    string     `db:"event_type"`
	AggregateKey string     `db:"aggregate_key"`
	Payload      []byte     `db:"payload"`
	Status       string     `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	ProcessedAt  *time.Time `db:"processed_at"`
}
