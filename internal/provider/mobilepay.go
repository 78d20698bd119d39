package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"backoffice/internal/domain"
)

// MobilePay кошелёк; ссылкой на платёж служит наш id платежа
type MobilePay struct {
	cfg      Config
	webhooks webhookBook
}

func NewMobilePay(cfg Config) *MobilePay {
	return &MobilePay{cfg: cfg}
}

var _ Service = (*MobilePay)(nil)

func (m *MobilePay) Provider() domain.PaymentProvider { return domain.ProviderMobilePay }

func (m *MobilePay) SupportsPaymentMethod(method domain.PaymentMethod) bool {
	return method == domain.PaymentMethodWallet
}

func (m *MobilePay) InitiatePayment(_ context.Context, p *domain.Payment) (*Initiation, error) {
	if !m.SupportsPaymentMethod(p.Method()) {
		return nil, fmt.Errorf("mobilepay: unsupported payment method %s", p.Method())
	}
	ref := p.ID().String()
	init := &Initiation{Reference: ref}
	if m.cfg.RedirectURL != "" {
		u, err := url.Parse(m.cfg.RedirectURL)
		if err != nil {
			return nil, fmt.Errorf("mobilepay: redirect url: %w", err)
		}
		q := u.Query()
		q.Set("reference", ref)
		if m.cfg.MerchantID != "" {
			q.Set("merchant", m.cfg.MerchantID)
		}
		u.RawQuery = q.Encode()
		init.RedirectURL = u.String()
	}
	return init, nil
}

type mobilePayEvent struct {
	Reference    string `json:"reference"`
	PSPReference string `json:"pspReference"`
	Name         string `json:"name"`
	Success      bool   `json:"success"`
	Amount       struct {
		Currency string `json:"currency"`
		Value    int64  `json:"value"`
	} `json:"amount"`
}

var mobilePayOutcomes = map[string]Outcome{
	"AUTHORIZED": OutcomeReserved,
	"CAPTURED":   OutcomeCaptured,
	"CANCELLED":  OutcomeCancelled,
	"EXPIRED":    OutcomeExpired,
	"ABORTED":    OutcomeFailed,
	"TERMINATED": OutcomeFailed,
}

// HandleCallback подпись: hex HMAC-SHA256 тела запроса. Без секрета уведомления отклоняются.
func (m *MobilePay) HandleCallback(_ context.Context, payload []byte, signature string) (*CallbackResult, error) {
	if m.cfg.WebhookSecret == "" || !validMAC(m.cfg.WebhookSecret, payload, strings.TrimSpace(signature)) {
		return nil, ErrInvalidSignature
	}
	var ev mobilePayEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	paymentID, err := uuid.Parse(ev.Reference)
	if err != nil {
		return nil, fmt.Errorf("%w: reference: %v", ErrInvalidCallback, err)
	}
	outcome, ok := mobilePayOutcomes[strings.ToUpper(ev.Name)]
	if !ok {
		outcome = OutcomeIgnored
	}
	if !ev.Success && outcome != OutcomeIgnored {
		outcome = OutcomeFailed
	}
	res := &CallbackResult{
		Provider:      domain.ProviderMobilePay,
		PaymentID:     paymentID,
		Reference:     ev.Reference,
		TransactionID: ev.PSPReference,
		Outcome:       outcome,
		Amount:        domain.NewMoney(decimal.New(ev.Amount.Value, -2), ev.Amount.Currency),
	}
	if outcome == OutcomeFailed {
		res.Reason = "mobilepay: " + strings.ToLower(ev.Name)
	}
	return res, nil
}

func (m *MobilePay) SignPayload(payload []byte) string {
	return sign(m.cfg.WebhookSecret, payload)
}

func (m *MobilePay) RegisterWebhook(_ context.Context, endpoint string, events []string) (*Webhook, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("mobilepay: webhook url is required")
	}
	if len(events) == 0 {
		events = []string{"epayments.payment.authorized.v1", "epayments.payment.captured.v1",
			"epayments.payment.cancelled.v1", "epayments.payment.expired.v1", "epayments.payment.aborted.v1"}
	}
	return m.webhooks.add(endpoint, events), nil
}

func (m *MobilePay) DeleteWebhook(_ context.Context, id string) error {
	return m.webhooks.remove(id)
}

func (m *MobilePay) GetWebhooks(_ context.Context) ([]Webhook, error) {
	return m.webhooks.list(), nil
}

func (m *MobilePay) GetProviderConfig() PublicConfig {
	return PublicConfig{
		Provider:    domain.ProviderMobilePay,
		Methods:     []domain.PaymentMethod{domain.PaymentMethodWallet},
		MerchantID:  m.cfg.MerchantID,
		RedirectURL: m.cfg.RedirectURL,
		Webhooks:    m.cfg.WebhookSecret != "",
	}
}
