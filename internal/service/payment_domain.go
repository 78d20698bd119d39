package service

import (
	"context"
	"strings"

	"backoffice/internal/domain"
)

// PaymentDomainService жизненный цикл платежа. Каждый метод: проверка, изменение агрегата,
// публикация накопленных агрегатом событий.
type PaymentDomainService struct {
	validation *PaymentValidationService
	publisher  domain.EventPublisher
	maxRetries int
}

func NewPaymentDomainService(validation *PaymentValidationService, publisher domain.EventPublisher, maxRetries int) *PaymentDomainService {
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	return &PaymentDomainService{validation: validation, publisher: publisher, maxRetries: maxRetries}
}

func (s *PaymentDomainService) publish(ctx context.Context, p *domain.Payment) {
	s.publisher.Publish(ctx, p.DrainEvents())
}

// CreatePayment платёж на полную сумму заказа
func (s *PaymentDomainService) CreatePayment(ctx context.Context, order *domain.Order, method domain.PaymentMethod, provider domain.PaymentProvider) (*domain.Payment, error) {
	if err := s.validation.ValidateCreatePayment(order, method, provider); err != nil {
		return nil, err
	}
	p := domain.NewPayment(order, method, provider, s.maxRetries)
	s.publish(ctx, p)
	return p, nil
}

// ReservePayment провайдер подтвердил авторизацию суммы
func (s *PaymentDomainService) ReservePayment(ctx context.Context, p *domain.Payment, providerRef string) error {
	if err := s.validation.ValidateTransition(p, domain.PaymentStatusReserved); err != nil {
		return err
	}
	if err := p.MarkAsReserved(providerRef); err != nil {
		return err
	}
	s.publish(ctx, p)
	return nil
}

func (s *PaymentDomainService) CapturePayment(ctx context.Context, p *domain.Payment, transactionID string, captured domain.Money) error {
	if err := s.validation.ValidateCapture(p, transactionID, captured); err != nil {
		return err
	}
	if err := p.MarkAsCaptured(transactionID); err != nil {
		return err
	}
	s.publish(ctx, p)
	return nil
}

func (s *PaymentDomainService) FailPayment(ctx context.Context, p *domain.Payment, reason string) error {
	if err := s.validation.ValidateTransition(p, domain.PaymentStatusFailed); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "payment failed"
	}
	if err := p.MarkAsFailed(reason); err != nil {
		return err
	}
	s.publish(ctx, p)
	return nil
}

// RetryPayment FAILED -> PENDING, пока не исчерпан лимит попыток
func (s *PaymentDomainService) RetryPayment(ctx context.Context, p *domain.Payment) error {
	if err := p.Retry(); err != nil {
		return err
	}
	s.publish(ctx, p)
	return nil
}

func (s *PaymentDomainService) RefundPayment(ctx context.Context, p *domain.Payment, req RefundRequest) error {
	if err := s.validation.ValidateRefund(p, req); err != nil {
		return err
	}
	if err := p.Refund(req.Amount, req.Reason); err != nil {
		return err
	}
	s.publish(ctx, p)
	return nil
}

func (s *PaymentDomainService) CancelPayment(ctx context.Context, p *domain.Payment) error {
	if err := s.validation.ValidateTransition(p, domain.PaymentStatusCancelled); err != nil {
		return err
	}
	if err := p.Cancel(); err != nil {
		return err
	}
	s.publish(ctx, p)
	return nil
}

func (s *PaymentDomainService) ExpirePayment(ctx context.Context, p *domain.Payment) error {
	if err := s.validation.ValidateTransition(p, domain.PaymentStatusExpired); err != nil {
		return err
	}
	if err := p.Expire(); err != nil {
		return err
	}
	s.publish(ctx, p)
	return nil
}
