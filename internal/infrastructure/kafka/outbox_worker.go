package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/jitter"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	outboxBatchSize   = 10
	notifyWaitTimeout = 30 * time.Second
	reconnectBase     = 2 * time.Second
	reconnectMax      = 30 * time.Second
	staleAfter        = 2 * time.Minute
)

// OutboxWorker переносит события image.processed из outbox_events в Kafka.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	dbConnStr string
	channel   string
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	dbConnStr string,
	channel string,
) *OutboxWorker {
	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		stop:      make(chan struct{}),
		dbConnStr: dbConnStr,
		channel:   channel,
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	// Запускаем слушатель уведомлений
	go func() {
		defer w.wg.Done()
		w.listenOutboxNotifications(ctx)
	}()
}

// Stop можно вызывать повторно.
func (w *OutboxWorker) Stop(_ context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	return nil
}

func (w *OutboxWorker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	select {
	case <-ctx.Done():
		w.logger.Infof("Outbox worker stopped by context cancellation")
	case <-w.stop:
		w.logger.Infof("Outbox worker stopped")
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	var conn *pgx.Conn

	connect := func() error {
		c, err := pgx.Connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		if _, err := c.Exec(ctx, "LISTEN "+pgx.Identifier{w.channel}.Sanitize()); err != nil {
			_ = c.Close(ctx)
			return e.Wrap("failed to LISTEN", err)
		}

		conn = c
		w.logger.Infof("Subscribed to '%s' channel", w.channel)
		return nil
	}

	backoff := jitter.NewBackoff(reconnectBase, reconnectMax)
	for conn == nil {
		if err := connect(); err != nil {
			w.logger.Warnf("LISTEN connect failed: %v", err)
			if !w.sleep(ctx, backoff.Next()) {
				return
			}
		}
	}
	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	backoff.Reset()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		if conn == nil {
			if err := connect(); err != nil {
				w.logger.Warnf("Reconnect failed (attempt %d): %v", backoff.Attempt()+1, err)
				if !w.sleep(ctx, backoff.Next()) {
					return
				}
				continue
			}
			backoff.Reset()
			// За время разрыва могли появиться события без уведомления
			w.drain(ctx)
		}

		waitCtx, cancel := context.WithTimeout(ctx, notifyWaitTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				// Тишина в канале: подбираем события, не опубликованные с прошлых попыток
				w.drain(ctx)
				continue
			}
			if errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
			_ = conn.Close(ctx)
			conn = nil
			continue
		}

		if notif != nil && notif.Channel == w.channel {
			w.logger.Debugf("Received outbox notification, draining outbox events")
			w.drain(ctx)
		}
	}
}

// sleep ждёт d и возвращает false, если воркер остановлен раньше.
func (w *OutboxWorker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-w.stop:
		return false
	case <-t.C:
		return true
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	if n, err := w.repo.ReleaseStale(ctx, staleAfter); err != nil {
		w.logger.Warnf("release stale outbox events failed: %v", err)
	} else if n > 0 {
		w.logger.Infof("returned %d stale outbox events to pending", n)
	}

	for {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Warnf("Batch processing failed: %v", err)
			return
		}
		if !hasMore {
			return
		}
	}
}

func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, outboxBatchSize)
	if err != nil {
		return false, err
	}

	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			w.logger.Errorf(err, "outbox event %s (%s) not published", event.EventID, event.AggregateKey)
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	return len(events) == outboxBatchSize, nil
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	err := w.producer.WriteRawMessage(ctx, usecase.NewWriteRawMessageReq(event.AggregateKey, event.Payload))
	if err != nil {
		if isRetryableError(err) {
			return e.Wrap("Temporary Kafka failure, will retry", err)
		}
		return e.Wrap("Permanent Kafka failure", err)
	}
	return nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
