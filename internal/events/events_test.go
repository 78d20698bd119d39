package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"backoffice/internal/domain"
	"backoffice/internal/mocks"
	"backoffice/pkg/logger"
)

func statusChanged(aggregate uuid.UUID, to domain.OrderStatus) domain.Event {
	return domain.OrderStatusChanged{
		EventMeta: domain.EventMeta{ID: uuid.NewString(), Aggregate: aggregate, At: time.Now().UTC()},
		From:      domain.OrderStatusPending,
		To:        to,
	}
}

func TestDispatcherPublishesAfterSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventPublisher(ctrl)
	d := NewDispatcher(sink)
	id := uuid.New()

	sink.EXPECT().Publish(gomock.Any(), gomock.Len(3))
	err := d.Transactional(context.Background(), func(ctx context.Context) error {
		d.Publish(ctx, []domain.Event{statusChanged(id, domain.OrderStatusPaid)})
		// nested scope joins the outer batch
		return d.Transactional(ctx, func(ctx context.Context) error {
			d.Publish(ctx, []domain.Event{statusChanged(id, domain.OrderStatusShipped), statusChanged(id, domain.OrderStatusCompleted)})
			return nil
		})
	})
	require.NoError(t, err)
}

func TestDispatcherDiscardsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventPublisher(ctrl) // no calls expected
	d := NewDispatcher(sink)

	boom := errors.New("boom")
	err := d.Transactional(context.Background(), func(ctx context.Context) error {
		d.Publish(ctx, []domain.Event{statusChanged(uuid.New(), domain.OrderStatusPaid)})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// empty batches are not forwarded either
	require.NoError(t, d.Transactional(context.Background(), func(context.Context) error { return nil }))
	d.Publish(context.Background(), nil)
}

func TestDispatcherOutsideScopePublishesImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventPublisher(ctrl)
	d := NewDispatcher(sink)

	sink.EXPECT().Publish(gomock.Any(), gomock.Len(1))
	d.Publish(context.Background(), []domain.Event{statusChanged(uuid.New(), domain.OrderStatusPaid)})
}

func TestFanout(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockEventPublisher(ctrl)
	b := mocks.NewMockEventPublisher(ctrl)
	evs := []domain.Event{statusChanged(uuid.New(), domain.OrderStatusPaid)}

	gomock.InOrder(
		a.EXPECT().Publish(gomock.Any(), evs),
		b.EXPECT().Publish(gomock.Any(), evs),
	)
	Fanout{a, b}.Publish(context.Background(), evs)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisherEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	id := uuid.New()
	ev := statusChanged(id, domain.OrderStatusPaid)

	p.Publish(context.Background(), []domain.Event{ev})
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, id.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, domain.EventOrderStatusChanged, string(msg.Headers[0].Value))

	var env struct {
		EventID     string         `json:"event_id"`
		Type        string         `json:"type"`
		AggregateID string         `json:"aggregate_id"`
		Payload     map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, ev.EventID(), env.EventID)
	assert.Equal(t, domain.EventOrderStatusChanged, env.Type)
	assert.Equal(t, id.String(), env.AggregateID)
	assert.Equal(t, "PAID", env.Payload["to"])
}

func TestKafkaPublisherLogsWriteFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}
	p.Publish(context.Background(), []domain.Event{statusChanged(uuid.New(), domain.OrderStatusPaid)})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "publish domain events", logs.All()[0].Message)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	LogPublisher{}.Publish(context.Background(), []domain.Event{
		statusChanged(uuid.New(), domain.OrderStatusPaid),
		statusChanged(uuid.New(), domain.OrderStatusShipped),
	})
	assert.Equal(t, 2, logs.FilterMessage("domain event").Len())
}
