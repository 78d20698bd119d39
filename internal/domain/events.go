package domain

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Event неизменяемая запись о том, что произошло с агрегатом.
// Агрегаты только регистрируют события; публикует их сервис после успешной транзакции.
type Event interface {
	EventID() string
	EventName() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

const (
	EventOrderCreated         = "order.created"
	EventOrderStatusChanged   = "order.status_changed"
	EventPaymentCreated       = "payment.created"
	EventPaymentReserved      = "payment.reserved"
	EventPaymentCaptured      = "payment.captured"
	EventPaymentFailed        = "payment.failed"
	EventPaymentCancelled     = "payment.cancelled"
	EventRefundIssued         = "payment.refund_issued"
	EventPaymentStatusChanged = "payment.status_changed"
)

// EventMeta общие поля всех событий
type EventMeta struct {
	ID        string    `json:"event_id"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	At        time.Time `json:"occurred_at"`
}

func newMeta(aggregate uuid.UUID, at time.Time) EventMeta {
	return EventMeta{
		ID:        ulid.MustNew(ulid.Timestamp(at), rand.Reader).String(),
		Aggregate: aggregate,
		At:        at,
	}
}

func (m EventMeta) EventID() string        { return m.ID }
func (m EventMeta) AggregateID() uuid.UUID { return m.Aggregate }
func (m EventMeta) OccurredAt() time.Time  { return m.At }

type OrderCreated struct {
	EventMeta
	UserID   uuid.UUID `json:"user_id"`
	Currency string    `json:"currency"`
	Email    string    `json:"customer_email"`
}

func (OrderCreated) EventName() string { return EventOrderCreated }

type OrderStatusChanged struct {
	EventMeta
	From OrderStatus `json:"from"`
	To   OrderStatus `json:"to"`
}

func (OrderStatusChanged) EventName() string { return EventOrderStatusChanged }

type PaymentCreated struct {
	EventMeta
	OrderID  uuid.UUID       `json:"order_id"`
	Amount   Money           `json:"amount"`
	Method   PaymentMethod   `json:"method"`
	Provider PaymentProvider `json:"provider"`
}

func (PaymentCreated) EventName() string { return EventPaymentCreated }

type PaymentReserved struct {
	EventMeta
	OrderID           uuid.UUID `json:"order_id"`
	ProviderReference string    `json:"provider_reference"`
}

func (PaymentReserved) EventName() string { return EventPaymentReserved }

type PaymentCaptured struct {
	EventMeta
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        Money     `json:"amount"`
}

func (PaymentCaptured) EventName() string { return EventPaymentCaptured }

type PaymentFailed struct {
	EventMeta
	OrderID    uuid.UUID `json:"order_id"`
	Reason     string    `json:"reason"`
	RetryCount int       `json:"retry_count"`
	CanRetry   bool      `json:"can_retry"`
}

func (PaymentFailed) EventName() string { return EventPaymentFailed }

type PaymentCancelled struct {
	EventMeta
	OrderID uuid.UUID `json:"order_id"`
}

func (PaymentCancelled) EventName() string { return EventPaymentCancelled }

type RefundIssued struct {
	EventMeta
	OrderID uuid.UUID `json:"order_id"`
	Amount  Money     `json:"amount"`
	Reason  string    `json:"reason"`
	Full    bool      `json:"full"`
}

func (RefundIssued) EventName() string { return EventRefundIssued }

type PaymentStatusChanged struct {
	EventMeta
	OrderID uuid.UUID     `json:"order_id"`
	From    PaymentStatus `json:"from"`
	To      PaymentStatus `json:"to"`
}

func (PaymentStatusChanged) EventName() string { return EventPaymentStatusChanged }

// eventBuffer встраивается в агрегаты
type eventBuffer struct {
	pending []Event
}

func (b *eventBuffer) record(e Event) {
	b.pending = append(b.pending, e)
}

// PendingEvents возвращает копию буфера без очистки
func (b *eventBuffer) PendingEvents() []Event {
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// DrainEvents забирает накопленные события и очищает буфер
func (b *eventBuffer) DrainEvents() []Event {
	out := b.pending
	b.pending = nil
	return out
}

//go:generate mockgen -destination=../mocks/publisher_mock.go -package=mocks backoffice/internal/domain EventPublisher

// EventPublisher доставка событий по принципу fire-and-forget: ошибки доставки
// обрабатывает сама реализация.
type EventPublisher interface {
	Publish(ctx context.Context, events []Event)
}
