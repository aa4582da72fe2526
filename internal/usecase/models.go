package usecase

import (
	"time"

	"github.com/collinlucke/baphomet-server/internal/domain"
)

// Этапы обработки одного размера. Используются в логах, метриках и StageError.
const (
	StageCheckingExistence = "checking_existence"
	StageDownloading       = "downloading"
	StageResizing          = "resizing"
	StageUploading         = "uploading"
	StageExists            = "exists"
	StageFailed            = "failed"
)

// IMAGE USECASE

// ProcessImageReq - запрос на обработку всех размеров категории.
type ProcessImageReq struct {
	SourceURL string
	Category  domain.Category
}

// GetImageReq - запрос URL одного размера. Пустой Size означает размер по умолчанию.
type GetImageReq struct {
	SourceURL string
	Category  domain.Category
	Size      string
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

const EventTypeImageProcessed = "image.processed"

// OutboxEvent - событие, ожидающее публикации в Kafka.
type OutboxEvent struct {
	ID           int64
	EventID      string
	EventType    string
	AggregateKey string // content hash, ключ сообщения Kafka
	Payload      []byte
	Status       OutboxStatus
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// INFRASTRUCTURE

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// MAPPERS

func NewProcessImageReq(sourceURL string, category domain.Category) *ProcessImageReq {
	return &ProcessImageReq{
		SourceURL: sourceURL,
		Category:  category,
	}
}

func NewGetImageReq(sourceURL string, category domain.Category, size string) *GetImageReq {
	return &GetImageReq{
		SourceURL: sourceURL,
		Category:  category,
		Size:      size,
	}
}

func NewOutboxEvent(eventID, eventType, aggregateKey string, payload []byte, createdAt time.Time) *OutboxEvent {
	return &OutboxEvent{
		EventID:      eventID,
		EventType:    eventType,
		AggregateKey: aggregateKey,
		Payload:      payload,
		Status:       Pending,
		CreatedAt:    createdAt,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}
