package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"backoffice/internal/domain"
)

// Stripe провайдер карт и кошельков (Apple Pay / Google Pay через Stripe)
type Stripe struct {
	cfg      Config
	webhooks webhookBook
}

func NewStripe(cfg Config) *Stripe {
	return &Stripe{cfg: cfg}
}

var _ Service = (*Stripe)(nil)

func (s *Stripe) Provider() domain.PaymentProvider { return domain.ProviderStripe }

func (s *Stripe) SupportsPaymentMethod(m domain.PaymentMethod) bool {
	return m == domain.PaymentMethodCard || m == domain.PaymentMethodWallet
}

// InitiatePayment создаёт payment intent с ручным списанием; клиент подтверждает его по client secret
func (s *Stripe) InitiatePayment(_ context.Context, p *domain.Payment) (*Initiation, error) {
	if !s.SupportsPaymentMethod(p.Method()) {
		return nil, fmt.Errorf("stripe: unsupported payment method %s", p.Method())
	}
	ref := "pi_" + newULID()
	return &Initiation{
		Reference:    ref,
		ClientSecret: ref + "_secret_" + newULID(),
	}, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string            `json:"id"`
			Amount           int64             `json:"amount"`
			Currency         string            `json:"currency"`
			LatestCharge     string            `json:"latest_charge"`
			Metadata         map[string]string `json:"metadata"`
			CancelReason     string            `json:"cancellation_reason"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

var stripeOutcomes = map[string]Outcome{
	"payment_intent.amount_capturable_updated": OutcomeReserved,
	"payment_intent.succeeded":                 OutcomeCaptured,
	"payment_intent.payment_failed":            OutcomeFailed,
	"payment_intent.canceled":                  OutcomeCancelled,
}

// HandleCallback разбирает событие вебхука. Подпись в формате "t=<unix>,v1=<hex>".
func (s *Stripe) HandleCallback(_ context.Context, payload []byte, signature string) (*CallbackResult, error) {
	if err := s.verify(payload, signature); err != nil {
		return nil, err
	}
	var ev stripeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	obj := ev.Data.Object
	paymentID, err := uuid.Parse(obj.Metadata["payment_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: metadata.payment_id: %v", ErrInvalidCallback, err)
	}
	outcome, ok := stripeOutcomes[ev.Type]
	if !ok {
		outcome = OutcomeIgnored
	}
	res := &CallbackResult{
		Provider:      domain.ProviderStripe,
		PaymentID:     paymentID,
		Reference:     obj.ID,
		TransactionID: obj.LatestCharge,
		Outcome:       outcome,
		// amounts arrive in minor units
		Amount: domain.NewMoney(decimal.New(obj.Amount, -2), obj.Currency),
	}
	switch {
	case obj.LastPaymentError != nil:
		res.Reason = obj.LastPaymentError.Message
	case obj.CancelReason != "":
		res.Reason = obj.CancelReason
	}
	if res.TransactionID == "" {
		res.TransactionID = obj.ID
	}
	return res, nil
}

// verify без секрета вебхуки не принимаются вовсе
func (s *Stripe) verify(payload []byte, header string) error {
	if s.cfg.WebhookSecret == "" {
		return ErrInvalidSignature
	}
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if _, err := strconv.ParseInt(ts, 10, 64); err != nil || v1 == "" {
		return ErrInvalidSignature
	}
	if !validMAC(s.cfg.WebhookSecret, append([]byte(ts+"."), payload...), v1) {
		return ErrInvalidSignature
	}
	return nil
}

// SignPayload строит заголовок подписи так же, как это делает Stripe
func (s *Stripe) SignPayload(payload []byte, unix int64) string {
	ts := strconv.FormatInt(unix, 10)
	return "t=" + ts + ",v1=" + sign(s.cfg.WebhookSecret, append([]byte(ts+"."), payload...))
}

func (s *Stripe) RegisterWebhook(_ context.Context, url string, events []string) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("stripe: webhook url is required")
	}
	if len(events) == 0 {
		events = []string{"payment_intent.*"}
	}
	return s.webhooks.add(url, events), nil
}

func (s *Stripe) DeleteWebhook(_ context.Context, id string) error {
	return s.webhooks.remove(id)
}

func (s *Stripe) GetWebhooks(_ context.Context) ([]Webhook, error) {
	return s.webhooks.list(), nil
}

func (s *Stripe) GetProviderConfig() PublicConfig {
	return PublicConfig{
		Provider: domain.ProviderStripe,
		Methods:  []domain.PaymentMethod{domain.PaymentMethodCard, domain.PaymentMethodWallet},
		Webhooks: s.cfg.WebhookSecret != "",
	}
}
