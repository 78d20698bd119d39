package service

import (
	"strings"

	"backoffice/internal/domain"
	"backoffice/internal/provider"
)

// RefundRequest запрос на возврат
type RefundRequest struct {
	Amount domain.Money `json:"amount"`
	Reason string       `json:"reason"`
}

// ProviderLookup поиск провайдера по тегу
type ProviderLookup interface {
	Lookup(tag domain.PaymentProvider) (provider.Service, error)
}

// PaymentValidationService проверки платежа перед изменением состояния
type PaymentValidationService struct {
	currencies map[string]struct{}
	providers  ProviderLookup
}

func NewPaymentValidationService(supportedCurrencies []string, providers ProviderLookup) *PaymentValidationService {
	set := make(map[string]struct{}, len(supportedCurrencies))
	for _, c := range supportedCurrencies {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &PaymentValidationService{currencies: set, providers: providers}
}

func (v *PaymentValidationService) SupportsCurrency(c string) bool {
	_, ok := v.currencies[c]
	return ok
}

// ValidateCreatePayment провайдер ищется первым: его отсутствие: ошибка поиска, а не нарушение
func (v *PaymentValidationService) ValidateCreatePayment(o *domain.Order, method domain.PaymentMethod, tag domain.PaymentProvider) error {
	svc, err := v.providers.Lookup(tag)
	if err != nil {
		return err
	}
	var violations domain.Violations
	amount := o.TotalAmount()
	if !v.SupportsCurrency(amount.Currency()) {
		violations.Add("currency %q is not supported", amount.Currency())
	}
	if !amount.IsPositive() {
		violations.Add("payment amount must be positive, got %s", amount)
	}
	if !method.Valid() {
		violations.Add("unknown payment method %q", method)
	} else if !svc.SupportsPaymentMethod(method) {
		violations.Add("provider %s does not support payment method %s", tag, method)
	}
	if !o.Status().CanTransitionTo(domain.OrderStatusPaid) {
		violations.Add("order %s in status %s cannot be paid", o.ID(), o.Status())
	}
	return violations.Err(domain.EntityPayment)
}

func (v *PaymentValidationService) ValidateCapture(p *domain.Payment, transactionID string, captured domain.Money) error {
	var violations domain.Violations
	if p.Status() != domain.PaymentStatusReserved {
		violations.Add("payment must be %s to capture, current status is %s", domain.PaymentStatusReserved, p.Status())
	}
	if strings.TrimSpace(transactionID) == "" {
		violations.Add("transaction id is required")
	}
	if eq, err := captured.Equal(p.Amount()); err != nil {
		violations.Add("captured amount currency %s does not match payment currency %s", captured.Currency(), p.Amount().Currency())
	} else if !eq {
		violations.Add("captured amount %s does not match payment amount %s", captured, p.Amount())
	}
	return violations.Err(domain.EntityPayment)
}

func (v *PaymentValidationService) ValidateRefund(p *domain.Payment, req RefundRequest) error {
	var violations domain.Violations
	if p.Status() != domain.PaymentStatusCaptured {
		violations.Add("payment must be %s to refund, current status is %s", domain.PaymentStatusCaptured, p.Status())
	}
	if strings.TrimSpace(req.Reason) == "" {
		violations.Add("refund reason is required")
	}
	if !req.Amount.SameCurrency(p.Amount()) {
		violations.Add("refund currency %s does not match payment currency %s", req.Amount.Currency(), p.Amount().Currency())
	} else {
		if !req.Amount.IsPositive() {
			violations.Add("refund amount must be positive, got %s", req.Amount)
		}
		if over, _ := req.Amount.GreaterThan(p.Amount()); over {
			violations.Add("refund amount %s exceeds payment amount %s", req.Amount, p.Amount())
		}
	}
	return violations.Err(domain.EntityPayment)
}

// ValidateTransition проверка по таблице переходов платежа
func (v *PaymentValidationService) ValidateTransition(p *domain.Payment, next domain.PaymentStatus) error {
	if p.Status().CanTransitionTo(next) {
		return nil
	}
	return &domain.StateTransitionError{
		Entity:      domain.EntityPayment,
		AggregateID: p.ID(),
		From:        string(p.Status()),
		To:          string(next),
		Reason:      "transition not allowed",
	}
}
