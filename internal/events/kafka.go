package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"backoffice/internal/domain"
	"backoffice/pkg/logger"
)

// Envelope формат сообщения в топике доменных событий
type Envelope struct {
	EventID     string       `json:"event_id"`
	Type        string       `json:"type"`
	AggregateID string       `json:"aggregate_id"`
	OccurredAt  time.Time    `json:"occurred_at"`
	Payload     domain.Event `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher ключ сообщения: id агрегата, чтобы события одного агрегата шли по порядку
type KafkaPublisher struct {
	writer messageWriter
}

// ParseBrokers разбирает список брокеров через запятую
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

var _ domain.EventPublisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, events []domain.Event) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := encode(e)
		if err != nil {
			logger.Log.Error("encode domain event", logger.String("event", e.EventName()), logger.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		logger.Log.Error("publish domain events", logger.Int("count", len(msgs)), logger.Error(err))
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(e domain.Event) (kafka.Message, error) {
	data, err := json.Marshal(Envelope{
		EventID:     e.EventID(),
		Type:        e.EventName(),
		AggregateID: e.AggregateID().String(),
		OccurredAt:  e.OccurredAt(),
		Payload:     e,
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(e.AggregateID().String()),
		Value:   data,
		Time:    e.OccurredAt(),
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(e.EventName())}},
	}, nil
}
