package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"backoffice/internal/domain"
	"backoffice/internal/events"
	"backoffice/internal/metrics"
	"backoffice/internal/notification"
	"backoffice/internal/provider"
	"backoffice/internal/repository"
)

// recorder собирает опубликованные события
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, events []domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// statusNotices запоминает уведомления о смене статуса заказа
type statusNotices struct {
	notification.LogNotifier
	mu      sync.Mutex
	changes []string
}

func (n *statusNotices) SendStatusUpdate(_ context.Context, o *domain.Order, previous domain.OrderStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, string(previous)+"->"+string(o.Status()))
	return nil
}

func (n *statusNotices) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.changes...)
}

type env struct {
	store     *repository.MemoryStore
	orders    *repository.MemoryOrders
	payments  *repository.MemoryPayments
	sink      *recorder
	metrics   *metrics.Metrics
	stripe    *provider.Stripe
	mobilePay *provider.MobilePay
	notices   *statusNotices

	products   *ProductService
	orderSvc   *OrderService
	paymentSvc *PaymentService
}

func setup(t *testing.T) *env {
	t.Helper()
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	paymentsRepo := repository.NewMemoryPayments(store)
	tx := repository.NewMemoryTx(store)
	sink := &recorder{}
	dispatcher := events.NewDispatcher(sink)
	m := metrics.New()

	stripe := provider.NewStripe(provider.Config{APIKey: "sk_test", WebhookSecret: "whsec_test"})
	mobilePay := provider.NewMobilePay(provider.Config{
		APIKey:        "mp_test",
		WebhookSecret: "mp_secret",
		MerchantID:    "merchant-1",
		RedirectURL:   "https://pay.example.com/checkout",
	})
	registry := provider.NewRegistry(stripe, mobilePay)

	orderDomain := NewOrderDomainService(NewOrderValidationService(), DefaultPricing(), dispatcher)
	paymentDomain := NewPaymentDomainService(NewPaymentValidationService([]string{"USD", "EUR"}, registry), dispatcher, 2)

	notices := &statusNotices{}
	return &env{
		store:      store,
		orders:     ordersRepo,
		payments:   paymentsRepo,
		sink:       sink,
		metrics:    m,
		stripe:     stripe,
		mobilePay:  mobilePay,
		notices:    notices,
		products:   NewProductService(store, ordersRepo, tx),
		orderSvc:   NewOrderService(store, ordersRepo, tx, dispatcher, orderDomain, m),
		paymentSvc: NewPaymentService(paymentsRepo, ordersRepo, tx, dispatcher, registry, paymentDomain, orderDomain, m).WithNotifier(notices),
	}
}

func (e *env) product(t *testing.T, name string, price int64, stock int) *domain.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), domain.Product{
		Name:   name,
		SKU:    "SKU-" + name,
		Price:  domain.MoneyFromInt(price, "USD"),
		Stock:  stock,
		Active: true,
	})
	require.NoError(t, err)
	return p
}

func (e *env) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := e.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func details(userID uuid.UUID, lines ...LineDetails) OrderDetails {
	return OrderDetails{
		UserID:          userID,
		Currency:        "USD",
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		ShippingAddress: domain.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		Lines:           lines,
	}
}

func line(productID uuid.UUID, qty int) LineDetails {
	return LineDetails{ProductID: productID, Quantity: qty}
}

// placeStandardOrder $10 x2 + $5 x1: subtotal 25, shipping 10, tax 5, total 40
func (e *env) placeStandardOrder(t *testing.T) *domain.Order {
	t.Helper()
	a := e.product(t, "A", 10, 10)
	b := e.product(t, "B", 5, 10)
	o, err := e.orderSvc.PlaceOrder(context.Background(), details(uuid.New(), line(a.ID, 2), line(b.ID, 1)))
	require.NoError(t, err)
	return o
}
