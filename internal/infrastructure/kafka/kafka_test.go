package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/collinlucke/baphomet-server/internal/domain"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "refused", err: errors.New("dial tcp: Connection Refused"), want: true},
		{name: "timeout", err: errors.New("read: i/o timeout"), want: true},
		{name: "broker", err: errors.New("[8] Broker Not Available"), want: true},
		{name: "too large", err: errors.New("message size too large"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestNewMessageKeyedByHash(t *testing.T) {
	msg := newMessage(usecase.NewWriteRawMessageReq("abc123", []byte(`{"a":1}`)))

	assert.Equal(t, []byte("abc123"), msg.Key)
	assert.Equal(t, []byte(`{"a":1}`), msg.Value)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "application/json", string(msg.Headers[0].Value))
}

func TestDecodeRequest(t *testing.T) {
	item, err := decodeRequest([]byte(`{"url":"https://image.tmdb.org/t/p/original/a.jpg","category":"Poster","id":"550_poster"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryPoster, item.Category)
	assert.Equal(t, "550_poster", item.ID)

	_, err = decodeRequest([]byte(`{not json`))
	assert.ErrorIs(t, err, e.ErrStatusBadRequest)

	_, err = decodeRequest([]byte(`{"category":"poster"}`))
	assert.ErrorIs(t, err, e.ErrSourceURLRequired)

	_, err = decodeRequest([]byte(`{"url":"https://x/a.jpg","category":"logo"}`))
	assert.ErrorIs(t, err, e.ErrUnknownCategory)
}

type fakeOutboxRepo struct {
	mu        sync.Mutex
	pending   []*usecase.OutboxEvent
	processed []int64
	released  int
}

func (f *fakeOutboxRepo) Create(_ context.Context, ev *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, ev)
	return ev, nil
}

func (f *fakeOutboxRepo) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(limit, len(f.pending))
	out := f.pending[:n]
	f.pending = f.pending[n:]
	return out, nil
}

func (f *fakeOutboxRepo) MarkAsProcessed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutboxRepo) ReleaseStale(context.Context, time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return 0, nil
}

type fakeProducer struct {
	keys []string
	fail map[string]error
}

func (f *fakeProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	if err := f.fail[req.Key]; err != nil {
		return err
	}
	f.keys = append(f.keys, req.Key)
	return nil
}

func TestOutboxWorkerDrain(t *testing.T) {
	repo := &fakeOutboxRepo{}
	for i := range 12 {
		repo.pending = append(repo.pending, &usecase.OutboxEvent{
			ID:           int64(i + 1),
			AggregateKey: string(rune('a' + i)),
			Payload:      []byte("{}"),
		})
	}
	producer := &fakeProducer{fail: map[string]error{"c": errors.New("connection refused")}}

	w := NewOutboxWorker(repo, logger.Nop{}, producer, "", "outbox_pending")
	w.drain(context.Background())

	assert.Empty(t, repo.pending)
	assert.Len(t, producer.keys, 11)
	assert.NotContains(t, repo.processed, int64(3))
	assert.Len(t, repo.processed, 11)
	assert.Equal(t, 1, repo.released)
}

type fakeReader struct {
	mu       sync.Mutex
	msgs     []kafka.Message
	commited []int64
	closed   bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		msg := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.commited = append(f.commited, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func (f *fakeReader) commitedOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.commited...)
}

type fakeImageUC struct {
	usecase.ImageUC
	mu    sync.Mutex
	items []domain.BatchItem
}

func (f *fakeImageUC) BatchProcessImages(_ context.Context, items []domain.BatchItem) map[string]domain.BatchItemResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
	out := make(map[string]domain.BatchItemResult, len(items))
	for _, it := range items {
		out[it.ID] = domain.BatchItemResult{Success: true}
	}
	return out
}

func (f *fakeImageUC) seen() []domain.BatchItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.BatchItem(nil), f.items...)
}

func TestRequestConsumerProcessesAndCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Key: []byte("550_poster"), Value: []byte(`{"url":"https://x/a.jpg","category":"poster"}`)},
		{Offset: 2, Value: []byte(`garbage`)},
		{Offset: 3, Value: []byte(`{"url":"https://x/b.jpg","category":"backdrop","id":"b"}`)},
	}}
	uc := &fakeImageUC{}

	c := newRequestConsumer(reader, uc, logger.Nop{})
	c.Start(context.Background())

	assert.Eventually(t, func() bool {
		return len(reader.commitedOffsets()) == 3
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, []int64{1, 2, 3}, reader.commitedOffsets())
	assert.True(t, reader.closed)

	items := uc.seen()
	require.Len(t, items, 2)
	assert.Equal(t, "550_poster", items[0].ID)
	assert.Equal(t, domain.CategoryBackdrop, items[1].Category)
}
