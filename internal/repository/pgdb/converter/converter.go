package converter

import (
	"encoding/json"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/usecase"
)

// ProcessedImageConverter преобразует ProcessedImage между domain и моделью PostgreSQL.
type ProcessedImageConverter interface {
	ToModel(entity *domain.ProcessedImage) (*ProcessedImageModel, error)
	ToEntity(model *ProcessedImageModel) (*domain.ProcessedImage, error)
}

// OutboxEventConverter преобразует OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type ProcessedImageConv struct{}

func (ProcessedImageConv) ToModel(entity *domain.ProcessedImage) (*ProcessedImageModel, error) {
	variants, err := json.Marshal(entity.Variants)
	if err != nil {
		return nil, err
	}

	return &ProcessedImageModel{
		ContentHash: string(entity.ContentHash),
		Category:    string(entity.Category),
		SourceURL:   entity.SourceURL,
		Variants:    variants,
		ProcessedAt: entity.ProcessedAt,
	}, nil
}

func (ProcessedImageConv) ToEntity(model *ProcessedImageModel) (*domain.ProcessedImage, error) {
	var variants domain.VariantResult
	if err := json.Unmarshal(model.Variants, &variants); err != nil {
		return nil, err
	}

	return &domain.ProcessedImage{
		ContentHash: domain.ContentHash(model.ContentHash),
		Category:    domain.Category(model.Category),
		SourceURL:   model.SourceURL,
		Variants:    variants,
		ProcessedAt: model.ProcessedAt,
	}, nil
}

type OutboxEventConv struct{}

func (OutboxEventConv) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:           entity.ID,
		EventID:      entity.EventID,
		EventType:    entity.EventType,
		AggregateKey: entity.AggregateKey,
		Payload:      entity.Payload,
		Status:       string(entity.Status),
		CreatedAt:    entity.CreatedAt,
		ProcessedAt:  entity.ProcessedAt,
	}
}

func (OutboxEventConv) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:           model.ID,
		EventID:      model.EventID,
		EventType:    model.EventType,
		AggregateKey: model.AggregateKey,
		Payload:      model.Payload,
		Status:       usecase.OutboxStatus(model.Status),
		CreatedAt:    model.CreatedAt,
		ProcessedAt:  model.ProcessedAt,
	}
}

func (c OutboxEventConv) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		result = append(result, c.ToEntity(m))
	}
	return result
}
