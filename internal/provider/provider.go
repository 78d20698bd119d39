package provider

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"backoffice/internal/domain"
)

//go:generate mockgen -destination=../mocks/provider_mock.go -package=mocks backoffice/internal/provider Service

// Service контракт платёжного провайдера. Реализации: Stripe и MobilePay.
type Service interface {
	Provider() domain.PaymentProvider
	InitiatePayment(ctx context.Context, p *domain.Payment) (*Initiation, error)
	HandleCallback(ctx context.Context, payload []byte, signature string) (*CallbackResult, error)
	SupportsPaymentMethod(m domain.PaymentMethod) bool
	RegisterWebhook(ctx context.Context, url string, events []string) (*Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	GetWebhooks(ctx context.Context) ([]Webhook, error)
	GetProviderConfig() PublicConfig
}

var (
	ErrInvalidSignature = errors.New("invalid callback signature")
	ErrInvalidCallback  = errors.New("invalid callback payload")
	ErrWebhookNotFound  = errors.New("webhook not found")
)

// Config задаётся при создании провайдера; без APIKey провайдер не включается
type Config struct {
	APIKey        string
	WebhookSecret string
	MerchantID    string
	RedirectURL   string
}

func (c Config) Enabled() bool { return c.APIKey != "" }

// PublicConfig то, что можно отдать наружу (без секретов)
type PublicConfig struct {
	Provider    domain.PaymentProvider `json:"provider"`
	Methods     []domain.PaymentMethod `json:"methods"`
	MerchantID  string                 `json:"merchant_id,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Webhooks    bool                   `json:"webhooks_signed"`
}

// Initiation результат запуска платежа у провайдера
type Initiation struct {
	Reference    string `json:"reference"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Outcome во что провайдер перевёл платёж
type Outcome string

const (
	OutcomeReserved  Outcome = "RESERVED"
	OutcomeCaptured  Outcome = "CAPTURED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeExpired   Outcome = "EXPIRED"
	OutcomeIgnored   Outcome = "IGNORED"
)

// CallbackResult нормализованное уведомление провайдера
type CallbackResult struct {
	Provider      domain.PaymentProvider
	PaymentID     uuid.UUID
	Reference     string
	TransactionID string
	Outcome       Outcome
	Amount        domain.Money
	Reason        string
}

type Webhook struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry провайдеры по тегу
type Registry struct {
	services map[domain.PaymentProvider]Service
}

func NewRegistry(services ...Service) *Registry {
	r := &Registry{services: make(map[domain.PaymentProvider]Service, len(services))}
	for _, s := range services {
		r.services[s.Provider()] = s
	}
	return r
}

// FromConfig включает только провайдеров с заданным ключом API
func FromConfig(stripe, mobilePay Config) *Registry {
	var services []Service
	if stripe.Enabled() {
		services = append(services, NewStripe(stripe))
	}
	if mobilePay.Enabled() {
		services = append(services, NewMobilePay(mobilePay))
	}
	return NewRegistry(services...)
}

func (r *Registry) Lookup(tag domain.PaymentProvider) (Service, error) {
	s, ok := r.services[tag]
	if !ok {
		return nil, &domain.NotFoundError{Entity: domain.EntityProvider, ID: string(tag)}
	}
	return s, nil
}

func (r *Registry) Providers() []domain.PaymentProvider {
	out := make([]domain.PaymentProvider, 0, len(r.services))
	for tag := range r.services {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// webhookBook хранит зарегистрированные вебхуки провайдера
type webhookBook struct {
	mu    sync.Mutex
	hooks []Webhook
}

func (b *webhookBook) add(url string, events []string) *Webhook {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := Webhook{ID: "wh_" + newULID(), URL: url, Events: slices.Clone(events), CreatedAt: time.Now().UTC()}
	b.hooks = append(b.hooks, w)
	return &w
}

func (b *webhookBook) remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := slices.IndexFunc(b.hooks, func(w Webhook) bool { return w.ID == id })
	if idx < 0 {
		return ErrWebhookNotFound
	}
	b.hooks = slices.Delete(b.hooks, idx, idx+1)
	return nil
}

func (b *webhookBook) list() []Webhook {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.hooks)
}

func newULID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// sign hex(HMAC-SHA256(secret, msg))
func sign(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func validMAC(secret string, msg []byte, got string) bool {
	want := sign(secret, msg)
	return hmac.Equal([]byte(want), []byte(got))
}
