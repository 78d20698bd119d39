package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxRetries = 3

// PaymentAttempt одна попытка оплаты у провайдера
type PaymentAttempt struct {
	At         time.Time `json:"at"`
	Successful bool      `json:"successful"`
	Details    string    `json:"details"`
}

// Payment корень агрегата платежа; один платёж на заказ
type Payment struct {
	id             uuid.UUID
	orderID        uuid.UUID
	status         PaymentStatus
	amount         Money
	refundedAmount Money
	method         PaymentMethod
	provider       PaymentProvider
	providerRef    string
	transactionID  string
	errorMessage   string
	attempts       []PaymentAttempt
	retryCount     int
	maxRetries     int
	createdAt      time.Time
	updatedAt      time.Time
	completedAt    *time.Time
	version        int64

	eventBuffer
}

// NewPayment создаёт платёж на полную сумму заказа в статусе PENDING
func NewPayment(order *Order, method PaymentMethod, provider PaymentProvider, maxRetries int) *Payment {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	now := time.Now().UTC()
	p := &Payment{
		id:             uuid.New(),
		orderID:        order.ID(),
		status:         PaymentStatusPending,
		amount:         order.TotalAmount(),
		refundedAmount: Zero(order.Currency()),
		method:         method,
		provider:       provider,
		maxRetries:     maxRetries,
		createdAt:      now,
		updatedAt:      now,
	}
	p.record(PaymentCreated{
		EventMeta: newMeta(p.id, now),
		OrderID:   p.orderID,
		Amount:    p.amount,
		Method:    method,
		Provider:  provider,
	})
	return p
}

func (p *Payment) ID() uuid.UUID              { return p.id }
func (p *Payment) OrderID() uuid.UUID         { return p.orderID }
func (p *Payment) Status() PaymentStatus      { return p.status }
func (p *Payment) Amount() Money              { return p.amount }
func (p *Payment) RefundedAmount() Money      { return p.refundedAmount }
func (p *Payment) Method() PaymentMethod      { return p.method }
func (p *Payment) Provider() PaymentProvider  { return p.provider }
func (p *Payment) ProviderReference() string  { return p.providerRef }
func (p *Payment) TransactionID() string      { return p.transactionID }
func (p *Payment) ErrorMessage() string       { return p.errorMessage }
func (p *Payment) RetryCount() int            { return p.retryCount }
func (p *Payment) MaxRetries() int            { return p.maxRetries }
func (p *Payment) CreatedAt() time.Time       { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time       { return p.updatedAt }
func (p *Payment) CompletedAt() *time.Time    { return p.completedAt }
func (p *Payment) Version() int64             { return p.version }
func (p *Payment) SetVersion(v int64)         { p.version = v }
func (p *Payment) Attempts() []PaymentAttempt { return slices.Clone(p.attempts) }

// AssignProviderReference ссылка, выданная провайдером при запуске платежа
func (p *Payment) AssignProviderReference(ref string) {
	p.providerRef = ref
	p.updatedAt = time.Now().UTC()
}

// CanRetry повтор разрешён только из FAILED и пока не исчерпан лимит
func (p *Payment) CanRetry() bool {
	return p.status == PaymentStatusFailed && p.retryCount < p.maxRetries
}

// transition единственная точка смены статуса
func (p *Payment) transition(next PaymentStatus, reason string) error {
	if !p.status.CanTransitionTo(next) {
		return &StateTransitionError{
			Entity:      EntityPayment,
			AggregateID: p.id,
			From:        string(p.status),
			To:          string(next),
			Reason:      reason,
		}
	}
	prev := p.status
	now := time.Now().UTC()
	p.status = next
	p.updatedAt = now
	p.record(PaymentStatusChanged{EventMeta: newMeta(p.id, now), OrderID: p.orderID, From: prev, To: next})
	return nil
}

func (p *Payment) addAttempt(ok bool, details string) {
	p.attempts = append(p.attempts, PaymentAttempt{At: time.Now().UTC(), Successful: ok, Details: details})
	if !ok {
		p.retryCount++
	}
}

// MarkAsReserved провайдер авторизовал сумму
func (p *Payment) MarkAsReserved(providerRef string) error {
	if err := p.transition(PaymentStatusReserved, "reserve"); err != nil {
		return err
	}
	if providerRef != "" {
		p.providerRef = providerRef
	}
	p.addAttempt(true, "reserved at provider")
	p.record(PaymentReserved{EventMeta: newMeta(p.id, p.updatedAt), OrderID: p.orderID, ProviderReference: p.providerRef})
	return nil
}

// MarkAsCaptured фиксирует списание средств
func (p *Payment) MarkAsCaptured(transactionID string) error {
	if err := p.transition(PaymentStatusCaptured, "capture"); err != nil {
		return err
	}
	now := p.updatedAt
	p.transactionID = transactionID
	p.completedAt = &now
	p.errorMessage = ""
	p.addAttempt(true, "captured: "+transactionID)
	p.record(PaymentCaptured{EventMeta: newMeta(p.id, now), OrderID: p.orderID, TransactionID: transactionID, Amount: p.amount})
	return nil
}

// MarkAsFailed записывает неуспешную попытку; retryCount растёт только здесь
func (p *Payment) MarkAsFailed(reason string) error {
	if err := p.transition(PaymentStatusFailed, reason); err != nil {
		return err
	}
	p.errorMessage = reason
	p.addAttempt(false, reason)
	p.record(PaymentFailed{
		EventMeta:  newMeta(p.id, p.updatedAt),
		OrderID:    p.orderID,
		Reason:     reason,
		RetryCount: p.retryCount,
		CanRetry:   p.CanRetry(),
	})
	return nil
}

// Retry возвращает неуспешный платёж в PENDING
func (p *Payment) Retry() error {
	if !p.CanRetry() {
		return &StateTransitionError{
			Entity:      EntityPayment,
			AggregateID: p.id,
			From:        string(p.status),
			To:          string(PaymentStatusPending),
			Reason:      fmt.Sprintf("retry not permitted (retries %d of %d)", p.retryCount, p.maxRetries),
		}
	}
	if err := p.transition(PaymentStatusPending, "retry"); err != nil {
		return err
	}
	p.errorMessage = ""
	return nil
}

func (p *Payment) Cancel() error {
	if err := p.transition(PaymentStatusCancelled, "cancel"); err != nil {
		return err
	}
	p.record(PaymentCancelled{EventMeta: newMeta(p.id, p.updatedAt), OrderID: p.orderID})
	return nil
}

func (p *Payment) Expire() error {
	return p.transition(PaymentStatusExpired, "reservation expired")
}

// Refund возвращает amount; полный возврат переводит в REFUNDED, частичный в PARTIALLY_REFUNDED.
// Проверка суммы лежит на сервисе валидации.
func (p *Payment) Refund(amount Money, reason string) error {
	refunded, err := p.refundedAmount.Add(amount)
	if err != nil {
		return err
	}
	full, err := refunded.GreaterThanOrEqual(p.amount)
	if err != nil {
		return err
	}
	next := PaymentStatusPartiallyRefunded
	if full {
		next = PaymentStatusRefunded
	}
	if err := p.transition(next, reason); err != nil {
		return err
	}
	p.refundedAmount = refunded
	p.record(RefundIssued{EventMeta: newMeta(p.id, p.updatedAt), OrderID: p.orderID, Amount: amount, Reason: reason, Full: full})
	return nil
}

// Clone копия без буфера событий
func (p *Payment) Clone() *Payment {
	cp := *p
	cp.eventBuffer = eventBuffer{}
	cp.attempts = slices.Clone(p.attempts)
	if p.completedAt != nil {
		t := *p.completedAt
		cp.completedAt = &t
	}
	return &cp
}

type paymentJSON struct {
	ID                uuid.UUID        `json:"id"`
	OrderID           uuid.UUID        `json:"order_id"`
	Status            PaymentStatus    `json:"status"`
	Amount            Money            `json:"amount"`
	RefundedAmount    Money            `json:"refunded_amount"`
	Method            PaymentMethod    `json:"method"`
	Provider          PaymentProvider  `json:"provider"`
	ProviderReference string           `json:"provider_reference,omitempty"`
	TransactionID     string           `json:"transaction_id,omitempty"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	Attempts          []PaymentAttempt `json:"attempts"`
	RetryCount        int              `json:"retry_count"`
	MaxRetries        int              `json:"max_retries"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

func (p *Payment) MarshalJSON() ([]byte, error) {
	return json.Marshal(paymentJSON{
		ID:                p.id,
		OrderID:           p.orderID,
		Status:            p.status,
		Amount:            p.amount,
		RefundedAmount:    p.refundedAmount,
		Method:            p.method,
		Provider:          p.provider,
		ProviderReference: p.providerRef,
		TransactionID:     p.transactionID,
		ErrorMessage:      p.errorMessage,
		Attempts:          p.attempts,
		RetryCount:        p.retryCount,
		MaxRetries:        p.maxRetries,
		CreatedAt:         p.createdAt,
		UpdatedAt:         p.updatedAt,
		CompletedAt:       p.completedAt,
	})
}
