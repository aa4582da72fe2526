package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/jitter"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// messageReader - часть kafka.Reader, нужная консьюмеру.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RequestConsumer читает запросы на обработку из KAFKA_REQUEST_TOPIC
// и обрабатывает их по одному, коммитя offset после обработки.
type RequestConsumer struct {
	reader messageReader
	uc     usecase.ImageUC
	logger logger.Logger
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewRequestConsumer(cfg *cfg.KafkaCfg, uc usecase.ImageUC, logger logger.Logger) (*RequestConsumer, error) {
	const op = "kafka.NewRequestConsumer"
	if cfg == nil || len(cfg.Brokers) == 0 || cfg.RequestTopic == "" {
		return nil, e.Wrap(op, e.ErrMissingConfig)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.RequestTopic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  time.Second,
	})

	return newRequestConsumer(reader, uc, logger), nil
}

func newRequestConsumer(reader messageReader, uc usecase.ImageUC, logger logger.Logger) *RequestConsumer {
	return &RequestConsumer{
		reader: reader,
		uc:     uc,
		logger: logger,
	}
}

func (c *RequestConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

func (c *RequestConsumer) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

func (c *RequestConsumer) run(ctx context.Context) {
	backoff := jitter.NewBackoff(reconnectBase, reconnectMax)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Warnf("kafka fetch failed: %v", err)
			if !sleepCtx(ctx, backoff.Next()) {
				return
			}
			continue
		}
		backoff.Reset()

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Warnf("kafka commit offset %d failed: %v", msg.Offset, err)
		}
	}
}

// handle обрабатывает одно сообщение. Ошибки не возвращаются: битое сообщение
// нельзя обработать повторно, а ошибки конвейера уже сохранены в результате.
func (c *RequestConsumer) handle(ctx context.Context, msg kafka.Message) {
	item, err := decodeRequest(msg.Value)
	if err != nil {
		c.logger.Errorf(err, "skip kafka message at offset %d", msg.Offset)
		return
	}
	if item.ID == "" {
		item.ID = string(msg.Key)
	}

	results := c.uc.BatchProcessImages(ctx, []domain.BatchItem{item})
	for id, res := range results {
		if res.Success {
			c.logger.Infof("processed %s %s: %d variants", item.Category, id, len(res.Variants))
			continue
		}
		c.logger.Warnf("processing %s %s failed: %s", item.Category, id, strings.Join(res.Errors, "; "))
	}
}

func decodeRequest(data []byte) (domain.BatchItem, error) {
	var item domain.BatchItem
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.BatchItem{}, fmt.Errorf("%w: %v", e.ErrStatusBadRequest, err)
	}
	if strings.TrimSpace(item.SourceURL) == "" {
		return domain.BatchItem{}, e.ErrSourceURLRequired
	}
	category, err := domain.ParseCategory(string(item.Category))
	if err != nil {
		return domain.BatchItem{}, err
	}
	item.Category = category
	return item, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
