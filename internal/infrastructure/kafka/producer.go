package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const (
	defaultPartitions        = 3
	defaultReplicationFactor = 1
)

type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) (*Producer, error) {
	const op = "kafka.NewProducer"
	if cfg == nil || len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, e.Wrap(op, e.ErrMissingConfig)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// WriteRawMessage публикует готовый JSON события. Ключ сообщения - content hash,
// поэтому все события одного изображения попадают в одну партицию.
func (p *Producer) WriteRawMessage(ctx context.Context, req *usecase.WriteRawMessageReq) error {
	if err := p.writer.WriteMessages(ctx, newMessage(req)); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func (p *Producer) EnsureTopic(timeout time.Duration) error {
	return ensureTopic(p.cfg, p.cfg.Topic, timeout)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func newMessage(req *usecase.WriteRawMessageReq) kafka.Message {
	return kafka.Message{
		Key:   []byte(req.Key),
		Value: req.Payload,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
}

func ensureTopic(cfg *cfg.KafkaCfg, topic string, timeout time.Duration) error {
	conn, err := kafka.Dial(cfg.NetworkMode, cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		err := conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     defaultPartitions,
			ReplicationFactor: defaultReplicationFactor,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, topic))
	}
}
