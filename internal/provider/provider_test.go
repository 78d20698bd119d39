package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/domain"
)

func payableOrder(t *testing.T) *domain.Order {
	t.Helper()
	info := domain.NewShippingInfo("Jane", "jane@example.com", "", domain.Address{Line1: "x"}, nil)
	o := domain.NewOrder(uuid.New(), "USD", info)
	require.NoError(t, o.AddOrderLine(domain.NewOrderLine(uuid.New(), nil, 1, domain.MoneyFromInt(40, "USD"))))
	return o
}

func stripePayload(t *testing.T, eventType string, paymentID string, extra map[string]any) []byte {
	t.Helper()
	obj := map[string]any{
		"id":       "pi_1",
		"amount":   1999,
		"currency": "usd",
		"metadata": map[string]string{"payment_id": paymentID},
	}
	for k, v := range extra {
		obj[k] = v
	}
	body, err := json.Marshal(map[string]any{"id": "evt_1", "type": eventType, "data": map[string]any{"object": obj}})
	require.NoError(t, err)
	return body
}

func TestStripeInitiate(t *testing.T) {
	s := NewStripe(Config{APIKey: "sk"})
	o := payableOrder(t)

	init, err := s.InitiatePayment(context.Background(), domain.NewPayment(o, domain.PaymentMethodCard, domain.ProviderStripe, 3))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(init.Reference, "pi_"))
	assert.True(t, strings.HasPrefix(init.ClientSecret, init.Reference+"_secret_"))

	_, err = s.InitiatePayment(context.Background(), domain.NewPayment(o, "BANK_TRANSFER", domain.ProviderStripe, 3))
	assert.Error(t, err)
}

func TestStripeCallbackSignature(t *testing.T) {
	s := NewStripe(Config{APIKey: "sk", WebhookSecret: "whsec"})
	id := uuid.NewString()
	body := stripePayload(t, "payment_intent.succeeded", id, map[string]any{"latest_charge": "ch_9"})
	now := time.Now().Unix()

	res, err := s.HandleCallback(context.Background(), body, s.SignPayload(body, now))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCaptured, res.Outcome)
	assert.Equal(t, id, res.PaymentID.String())
	assert.Equal(t, "ch_9", res.TransactionID)
	assert.Equal(t, "19.99 USD", res.Amount.String())

	tests := []struct {
		name string
		sig  string
	}{
		{"empty", ""},
		{"no timestamp", "v1=abc"},
		{"other secret", NewStripe(Config{WebhookSecret: "other"}).SignPayload(body, now)},
		{"tampered timestamp", strings.Replace(s.SignPayload(body, now), "t=", "t=1", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.HandleCallback(context.Background(), body, tt.sig)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestStripeCallbackOutcomes(t *testing.T) {
	s := NewStripe(Config{APIKey: "sk", WebhookSecret: "whsec"})
	id := uuid.NewString()
	signed := func(body []byte) string { return s.SignPayload(body, time.Now().Unix()) }

	tests := []struct {
		eventType string
		extra     map[string]any
		want      Outcome
		reason    string
	}{
		{"payment_intent.amount_capturable_updated", nil, OutcomeReserved, ""},
		{"payment_intent.succeeded", nil, OutcomeCaptured, ""},
		{"payment_intent.payment_failed", map[string]any{"last_payment_error": map[string]string{"message": "declined"}}, OutcomeFailed, "declined"},
		{"payment_intent.canceled", map[string]any{"cancellation_reason": "abandoned"}, OutcomeCancelled, "abandoned"},
		{"charge.dispute.created", nil, OutcomeIgnored, ""},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			body := stripePayload(t, tt.eventType, id, tt.extra)
			res, err := s.HandleCallback(context.Background(), body, signed(body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, "pi_1", res.TransactionID, "falls back to the intent id")
		})
	}

	_, err := s.HandleCallback(context.Background(), []byte("{"), signed([]byte("{")))
	assert.ErrorIs(t, err, ErrInvalidCallback)
	bad := stripePayload(t, "payment_intent.succeeded", "nope", nil)
	_, err = s.HandleCallback(context.Background(), bad, signed(bad))
	assert.ErrorIs(t, err, ErrInvalidCallback)
}

func TestCallbacksWithoutSecretAreRejected(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()

	s := NewStripe(Config{APIKey: "sk_live"})
	body := stripePayload(t, "payment_intent.succeeded", id, nil)
	for _, sig := range []string{"", s.SignPayload(body, time.Now().Unix())} {
		_, err := s.HandleCallback(ctx, body, sig)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	}

	m := NewMobilePay(Config{APIKey: "mp"})
	mp, err := json.Marshal(map[string]any{"reference": id, "name": "CAPTURED", "success": true})
	require.NoError(t, err)
	for _, sig := range []string{"", m.SignPayload(mp)} {
		_, err := m.HandleCallback(ctx, mp, sig)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	}
	assert.False(t, s.GetProviderConfig().Webhooks)
}

func TestMobilePayInitiate(t *testing.T) {
	m := NewMobilePay(Config{APIKey: "mp", MerchantID: "m-1", RedirectURL: "https://pay.example.com/checkout"})
	p := domain.NewPayment(payableOrder(t), domain.PaymentMethodWallet, domain.ProviderMobilePay, 3)

	init, err := m.InitiatePayment(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, p.ID().String(), init.Reference)
	u, err := url.Parse(init.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", u.Host)
	assert.Equal(t, p.ID().String(), u.Query().Get("reference"))
	assert.Equal(t, "m-1", u.Query().Get("merchant"))

	card := domain.NewPayment(payableOrder(t), domain.PaymentMethodCard, domain.ProviderMobilePay, 3)
	_, err = m.InitiatePayment(context.Background(), card)
	assert.Error(t, err)
}

func TestMobilePayCallback(t *testing.T) {
	m := NewMobilePay(Config{APIKey: "mp", WebhookSecret: "secret"})
	id := uuid.NewString()
	payload := func(name string, success bool) []byte {
		body, err := json.Marshal(map[string]any{
			"reference":    id,
			"pspReference": "psp-7",
			"name":         name,
			"success":      success,
			"amount":       map[string]any{"currency": "DKK", "value": 12550},
		})
		require.NoError(t, err)
		return body
	}

	body := payload("AUTHORIZED", true)
	res, err := m.HandleCallback(context.Background(), body, m.SignPayload(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReserved, res.Outcome)
	assert.Equal(t, "psp-7", res.TransactionID)
	assert.Equal(t, "125.50 DKK", res.Amount.String())

	body = payload("captured", false)
	res, err = m.HandleCallback(context.Background(), body, m.SignPayload(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "mobilepay: captured", res.Reason)

	_, err = m.HandleCallback(context.Background(), body, "00")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSupportedMethods(t *testing.T) {
	s, m := NewStripe(Config{}), NewMobilePay(Config{})
	assert.True(t, s.SupportsPaymentMethod(domain.PaymentMethodCard))
	assert.True(t, s.SupportsPaymentMethod(domain.PaymentMethodWallet))
	assert.False(t, m.SupportsPaymentMethod(domain.PaymentMethodCard))
	assert.True(t, m.SupportsPaymentMethod(domain.PaymentMethodWallet))
	assert.Equal(t, []domain.PaymentMethod{domain.PaymentMethodWallet}, m.GetProviderConfig().Methods)
}

func TestRegistryFromConfig(t *testing.T) {
	r := FromConfig(Config{APIKey: "sk"}, Config{})
	assert.Equal(t, []domain.PaymentProvider{domain.ProviderStripe}, r.Providers())

	_, err := r.Lookup(domain.ProviderMobilePay)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	both := FromConfig(Config{APIKey: "sk"}, Config{APIKey: "mp"})
	assert.Len(t, both.Providers(), 2)
}

func TestWebhooks(t *testing.T) {
	ctx := context.Background()
	for _, svc := range []Service{NewStripe(Config{}), NewMobilePay(Config{})} {
		t.Run(string(svc.Provider()), func(t *testing.T) {
			_, err := svc.RegisterWebhook(ctx, "", nil)
			assert.Error(t, err)

			hook, err := svc.RegisterWebhook(ctx, "https://shop.example.com/hooks", nil)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hook.ID, "wh_"))
			assert.NotEmpty(t, hook.Events, "default events")

			hooks, err := svc.GetWebhooks(ctx)
			require.NoError(t, err)
			require.Len(t, hooks, 1)

			require.NoError(t, svc.DeleteWebhook(ctx, hook.ID))
			assert.ErrorIs(t, svc.DeleteWebhook(ctx, hook.ID), ErrWebhookNotFound)
			hooks, _ = svc.GetWebhooks(ctx)
			assert.Empty(t, hooks)
		})
	}
}
