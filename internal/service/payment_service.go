package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"backoffice/internal/domain"
	"backoffice/internal/metrics"
	"backoffice/internal/notification"
	"backoffice/internal/provider"
	"backoffice/internal/repository"
	"backoffice/pkg/logger"
)

// PaymentService платежи заказа: запуск у провайдера, обработка уведомлений, списание и возвраты.
// Платёж и его заказ меняются в одной транзакции.
type PaymentService struct {
	payments    repository.PaymentRepository
	orders      repository.OrderRepository
	uow         unitOfWork
	providers   ProviderLookup
	domain      *PaymentDomainService
	orderDomain *OrderDomainService
	metrics     *metrics.Metrics
	notifier    notification.OrderNotificationService
}

func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	tx repository.TxManager,
	events EventScope,
	providers ProviderLookup,
	domainSvc *PaymentDomainService,
	orderDomain *OrderDomainService,
	m *metrics.Metrics,
) *PaymentService {
	return &PaymentService{
		payments:    payments,
		orders:      orders,
		uow:         unitOfWork{tx: tx, events: events},
		providers:   providers,
		domain:      domainSvc,
		orderDomain: orderDomain,
		metrics:     m,
	}
}

// WithNotifier покупатель получает уведомление, когда платёж меняет статус заказа
func (s *PaymentService) WithNotifier(n notification.OrderNotificationService) *PaymentService {
	s.notifier = n
	return s
}

// StartPayment создаёт платёж по заказу и запускает его у провайдера
func (s *PaymentService) StartPayment(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod, tag domain.PaymentProvider) (*domain.Payment, *provider.Initiation, error) {
	var (
		payment *domain.Payment
		init    *provider.Initiation
	)
	err := s.uow.do(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		exists, err := s.payments.ExistsForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if exists {
			return domain.NewValidationError(domain.EntityPayment, "order "+orderID.String()+" already has a payment")
		}
		p, err := s.domain.CreatePayment(ctx, order, method, tag)
		if err != nil {
			return err
		}
		svc, err := s.providers.Lookup(tag)
		if err != nil {
			return err
		}
		if init, err = svc.InitiatePayment(ctx, p); err != nil {
			return fmt.Errorf("initiate payment at %s: %w", tag, err)
		}
		p.AssignProviderReference(init.Reference)
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		payment = p
		return nil
	})
	s.metrics.PaymentOp("start", err)
	if err != nil {
		return nil, nil, err
	}
	logger.Log.Info("payment started",
		logger.Stringer("payment_id", payment.ID()),
		logger.Stringer("order_id", orderID),
		logger.String("provider", string(tag)),
	)
	return payment, init, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *PaymentService) GetPaymentForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	return s.payments.GetByOrderID(ctx, orderID)
}

// mutate загружает платёж и его заказ, применяет fn и сохраняет оба агрегата
func (s *PaymentService) mutate(ctx context.Context, op string, id uuid.UUID, fn func(ctx context.Context, p *domain.Payment, o *domain.Order) error) (*domain.Payment, error) {
	var (
		updated      *domain.Payment
		changedOrder *domain.Order
		previous     domain.OrderStatus
	)
	err := s.uow.do(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		o, err := s.orders.GetByID(ctx, p.OrderID())
		if err != nil {
			return err
		}
		orderStatus := o.Status()
		if err := fn(ctx, p, o); err != nil {
			return err
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return err
		}
		if o.Status() != orderStatus {
			if err := s.orders.Update(ctx, o); err != nil {
				return err
			}
			changedOrder, previous = o, orderStatus
		}
		updated = p
		return nil
	})
	s.metrics.PaymentOp(op, err)
	if err != nil {
		logger.Log.Warn("payment operation rejected",
			logger.String("operation", op),
			logger.Stringer("payment_id", id),
			logger.Error(err),
		)
		return nil, err
	}
	logger.Log.Info("payment updated",
		logger.String("operation", op),
		logger.Stringer("payment_id", id),
		logger.String("status", string(updated.Status())),
	)
	if changedOrder != nil {
		notification.Notify(ctx, s.notifier, changedOrder, previous)
	}
	return updated, nil
}

func (s *PaymentService) Reserve(ctx context.Context, id uuid.UUID, providerRef string) (*domain.Payment, error) {
	return s.mutate(ctx, "reserve", id, func(ctx context.Context, p *domain.Payment, _ *domain.Order) error {
		return s.domain.ReservePayment(ctx, p, providerRef)
	})
}

// Capture списывает средства и переводит заказ в PAID
func (s *PaymentService) Capture(ctx context.Context, id uuid.UUID, transactionID string, amount domain.Money) (*domain.Payment, error) {
	return s.mutate(ctx, "capture", id, func(ctx context.Context, p *domain.Payment, o *domain.Order) error {
		return s.capture(ctx, p, o, transactionID, amount)
	})
}

func (s *PaymentService) capture(ctx context.Context, p *domain.Payment, o *domain.Order, transactionID string, amount domain.Money) error {
	if err := s.domain.CapturePayment(ctx, p, transactionID, amount); err != nil {
		return err
	}
	return s.orderDomain.UpdateOrderStatus(ctx, o, domain.OrderStatusPaid)
}

func (s *PaymentService) Fail(ctx context.Context, id uuid.UUID, reason string) (*domain.Payment, error) {
	return s.mutate(ctx, "fail", id, func(ctx context.Context, p *domain.Payment, _ *domain.Order) error {
		return s.domain.FailPayment(ctx, p, reason)
	})
}

func (s *PaymentService) Retry(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.mutate(ctx, "retry", id, func(ctx context.Context, p *domain.Payment, _ *domain.Order) error {
		return s.domain.RetryPayment(ctx, p)
	})
}

// Refund полный возврат по завершённому заказу переводит заказ в REFUNDED
func (s *PaymentService) Refund(ctx context.Context, id uuid.UUID, req RefundRequest) (*domain.Payment, error) {
	return s.mutate(ctx, "refund", id, func(ctx context.Context, p *domain.Payment, o *domain.Order) error {
		if err := s.domain.RefundPayment(ctx, p, req); err != nil {
			return err
		}
		if p.Status() == domain.PaymentStatusRefunded && o.Status() == domain.OrderStatusCompleted {
			return s.orderDomain.UpdateOrderStatus(ctx, o, domain.OrderStatusRefunded)
		}
		return nil
	})
}

func (s *PaymentService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.mutate(ctx, "cancel", id, func(ctx context.Context, p *domain.Payment, _ *domain.Order) error {
		return s.domain.CancelPayment(ctx, p)
	})
}

func (s *PaymentService) Expire(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.mutate(ctx, "expire", id, func(ctx context.Context, p *domain.Payment, _ *domain.Order) error {
		return s.domain.ExpirePayment(ctx, p)
	})
}

var outcomeStatus = map[provider.Outcome]domain.PaymentStatus{
	provider.OutcomeReserved:  domain.PaymentStatusReserved,
	provider.OutcomeCaptured:  domain.PaymentStatusCaptured,
	provider.OutcomeFailed:    domain.PaymentStatusFailed,
	provider.OutcomeCancelled: domain.PaymentStatusCancelled,
	provider.OutcomeExpired:   domain.PaymentStatusExpired,
}

// HandleCallback применяет уведомление провайдера. Повторное уведомление о уже
// достигнутом статусе ничего не меняет.
func (s *PaymentService) HandleCallback(ctx context.Context, tag domain.PaymentProvider, payload []byte, signature string) (*domain.Payment, error) {
	svc, err := s.providers.Lookup(tag)
	if err != nil {
		return nil, err
	}
	res, err := svc.HandleCallback(ctx, payload, signature)
	if err != nil {
		return nil, err
	}
	current, err := s.payments.GetByID(ctx, res.PaymentID)
	if err != nil {
		return nil, err
	}
	if current.Provider() != tag {
		return nil, domain.NewValidationError(domain.EntityPayment,
			fmt.Sprintf("payment %s belongs to provider %s, callback came from %s", current.ID(), current.Provider(), tag))
	}
	target, ok := outcomeStatus[res.Outcome]
	if !ok || current.Status() == target {
		return current, nil
	}

	return s.mutate(ctx, "callback", res.PaymentID, func(ctx context.Context, p *domain.Payment, o *domain.Order) error {
		switch res.Outcome {
		case provider.OutcomeReserved:
			return s.domain.ReservePayment(ctx, p, res.Reference)
		case provider.OutcomeCaptured:
			// provider captured without a separate authorization notice
			if p.Status() == domain.PaymentStatusPending {
				if err := s.domain.ReservePayment(ctx, p, res.Reference); err != nil {
					return err
				}
			}
			return s.capture(ctx, p, o, res.TransactionID, res.Amount)
		case provider.OutcomeFailed:
			return s.domain.FailPayment(ctx, p, res.Reason)
		case provider.OutcomeCancelled:
			return s.domain.CancelPayment(ctx, p)
		case provider.OutcomeExpired:
			return s.domain.ExpirePayment(ctx, p)
		}
		return errors.New("unhandled provider outcome " + string(res.Outcome))
	})
}
