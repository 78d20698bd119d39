package domain

import "slices"

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusAbandoned OrderStatus = "ABANDONED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// orderTransitions таблица допустимых переходов заказа. Пустой список: терминальный статус.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusAbandoned},
	OrderStatusAbandoned: {OrderStatusPending},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusCompleted},
	OrderStatusCompleted: {OrderStatusRefunded},
	OrderStatusCancelled: {},
	OrderStatusRefunded:  {},
}

func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending, OrderStatusAbandoned, OrderStatusPaid, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded,
	}
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo чистая проверка по таблице; переход в тот же статус не разрешён
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

func (s OrderStatus) AllowedTransitions() []OrderStatus {
	return slices.Clone(orderTransitions[s])
}

// PaymentStatus тип статуса платежа
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusReserved          PaymentStatus = "RESERVED"
	PaymentStatusCaptured          PaymentStatus = "CAPTURED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
	PaymentStatusExpired           PaymentStatus = "EXPIRED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusFailed, PaymentStatusReserved, PaymentStatusCancelled},
	PaymentStatusReserved: {
		PaymentStatusCaptured, PaymentStatusExpired, PaymentStatusFailed,
		PaymentStatusPartiallyRefunded, PaymentStatusRefunded,
	},
	PaymentStatusCaptured:          {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusFailed:            {PaymentStatusPending, PaymentStatusCancelled},
	PaymentStatusPartiallyRefunded: {PaymentStatusRefunded},
	PaymentStatusRefunded:          {},
	PaymentStatusCancelled:         {},
	PaymentStatusExpired:           {},
}

func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending, PaymentStatusReserved, PaymentStatusCaptured, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusExpired, PaymentStatusPartiallyRefunded, PaymentStatusRefunded,
	}
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return slices.Contains(paymentTransitions[s], next)
}

func (s PaymentStatus) IsTerminal() bool {
	next, ok := paymentTransitions[s]
	return ok && len(next) == 0
}

func (s PaymentStatus) AllowedTransitions() []PaymentStatus {
	return slices.Clone(paymentTransitions[s])
}

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "WALLET"
	PaymentMethodCard   PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodWallet || m == PaymentMethodCard
}

// PaymentProvider платёжный провайдер
type PaymentProvider string

const (
	ProviderStripe    PaymentProvider = "STRIPE"
	ProviderMobilePay PaymentProvider = "MOBILEPAY"
)

func (p PaymentProvider) Valid() bool {
	return p == ProviderStripe || p == ProviderMobilePay
}
