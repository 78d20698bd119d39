package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/domain"
	"backoffice/internal/events"
	"backoffice/internal/metrics"
	"backoffice/internal/notification"
	"backoffice/internal/provider"
	"backoffice/internal/repository"
	"backoffice/internal/service"
)

type testServer struct {
	*Server
	stripe *provider.Stripe
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	paymentsRepo := repository.NewMemoryPayments(store)
	tx := repository.NewMemoryTx(store)
	dispatcher := events.NewDispatcher(events.LogPublisher{})
	m := metrics.New()

	stripe := provider.NewStripe(provider.Config{APIKey: "sk_test", WebhookSecret: "whsec_test"})
	providers := provider.NewRegistry(stripe, provider.NewMobilePay(provider.Config{APIKey: "mp_test"}))

	orderDomain := service.NewOrderDomainService(service.NewOrderValidationService(), service.DefaultPricing(), dispatcher)
	paymentDomain := service.NewPaymentDomainService(service.NewPaymentValidationService([]string{"USD"}, providers), dispatcher, 3)

	notifier := notification.LogNotifier{AdminEmail: "admin@example.com"}
	s := NewServer(
		service.NewProductService(store, ordersRepo, tx),
		service.NewOrderService(store, ordersRepo, tx, dispatcher, orderDomain, m),
		service.NewPaymentService(paymentsRepo, ordersRepo, tx, dispatcher, providers, paymentDomain, orderDomain, m).WithNotifier(notifier),
		providers,
		notifier,
		m,
	)
	return &testServer{Server: s, stripe: stripe}
}

func doJSON(t *testing.T, s *testServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type productResp struct {
	ID    uuid.UUID    `json:"id"`
	Name  string       `json:"name"`
	Price domain.Money `json:"price"`
	Stock int          `json:"stock"`
}

type orderResp struct {
	ID          uuid.UUID          `json:"id"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount domain.Money       `json:"total_amount"`
}

type paymentResp struct {
	ID                uuid.UUID            `json:"id"`
	Status            domain.PaymentStatus `json:"status"`
	ProviderReference string               `json:"provider_reference"`
}

func usd(amount string) map[string]any {
	return map[string]any{"amount": amount, "currency": "USD"}
}

func createProduct(t *testing.T, s *testServer, name string, price string, stock int) productResp {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{
		"name": name, "sku": "SKU-" + name, "price": usd(price), "stock": stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[productResp](t, w)
}

func createOrder(t *testing.T, s *testServer, userID uuid.UUID, productID uuid.UUID, qty int) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, s, http.MethodPost, "/api/v1/orders", map[string]any{
		"user_id":          userID,
		"currency":         "USD",
		"customer_name":    "Jane Doe",
		"customer_email":   "jane@example.com",
		"shipping_address": map[string]string{"line1": "1 Main St", "city": "Springfield", "postal_code": "12345", "country": "US"},
		"lines":            []map[string]any{{"product_id": productID, "quantity": qty}},
	})
}

func TestProductFlow(t *testing.T) {
	s := setupServer(t)
	p := createProduct(t, s, "Aspirin", "10", 5)
	base := "/api/v1/products/" + p.ID.String()

	w := doJSON(t, s, http.MethodGet, base, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code %v", w.Code)
	}

	w = doJSON(t, s, http.MethodPut, base, map[string]any{
		"name": "Aspirin Plus", "price": usd("12.50"), "stock": 7, "active": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "12.50 USD", decode[productResp](t, w).Price.String())

	w = doJSON(t, s, http.MethodGet, "/api/v1/products?q=asp", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]productResp](t, w), 1)

	w = doJSON(t, s, http.MethodPost, base+"/stock", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, decode[productResp](t, w).Stock)

	w = doJSON(t, s, http.MethodPost, base+"/variants", map[string]any{"sku": "ASP-100", "price": usd("15")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, s, http.MethodPost, base+"/variants", map[string]any{"sku": "ASP-EUR", "price": map[string]any{"amount": "15", "currency": "EUR"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, s, http.MethodGet, base+"/variants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = doJSON(t, s, http.MethodDelete, base, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductValidationErrors(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/products/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "A", "sku": "A", "price": usd("-5"), "stock": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Contains(t, body, "violations")

	w = doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "A", "sku": "A", "price": usd("ten"), "stock": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderFlow(t *testing.T) {
	s := setupServer(t)
	p := createProduct(t, s, "Aspirin", "10", 5)
	userID := uuid.New()

	w := createOrder(t, s, userID, p.ID, 2)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	o := decode[orderResp](t, w)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	// 20 + shipping 10 + tax 4
	assert.Equal(t, "34.00 USD", o.TotalAmount.String())
	base := "/api/v1/orders/" + o.ID.String()

	w = doJSON(t, s, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders?user_id="+userID.String()+"&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []orderResp `json:"items"`
		Total int         `json:"total"`
	}](t, w)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Items, 1)

	// product in an open order cannot be removed
	w = doJSON(t, s, http.MethodDelete, "/api/v1/products/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, s, http.MethodPost, base+"/status", map[string]any{"status": "SHIPPED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, s, http.MethodPost, base+"/status", map[string]any{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, s, http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, s, http.MethodPost, base+"/status", map[string]any{"status": "PAID"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, s, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.OrderStatusCancelled, decode[orderResp](t, w).Status)

	w = doJSON(t, s, http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
	assert.Equal(t, 5, decode[productResp](t, w).Stock)
	w = doJSON(t, s, http.MethodDelete, "/api/v1/products/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOrderErrors(t *testing.T) {
	s := setupServer(t)
	p := createProduct(t, s, "Aspirin", "10", 1)

	tests := []struct {
		name string
		w    *httptest.ResponseRecorder
		want int
	}{
		{"not enough stock", createOrder(t, s, uuid.New(), p.ID, 2), http.StatusUnprocessableEntity},
		{"unknown product", createOrder(t, s, uuid.New(), uuid.New(), 1), http.StatusNotFound},
		{"zero quantity", createOrder(t, s, uuid.New(), p.ID, 0), http.StatusBadRequest},
		{"missing user", doJSON(t, s, http.MethodPost, "/api/v1/orders", map[string]any{"currency": "USD"}), http.StatusBadRequest},
		{"unknown order", doJSON(t, s, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil), http.StatusNotFound},
		{"list without user", doJSON(t, s, http.MethodGet, "/api/v1/orders", nil), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Code, tt.w.Body.String())
		})
	}
}

func TestPaymentFlow(t *testing.T) {
	s := setupServer(t)
	p := createProduct(t, s, "Aspirin", "10", 5)
	o := decode[orderResp](t, createOrder(t, s, uuid.New(), p.ID, 2))
	orderBase := "/api/v1/orders/" + o.ID.String()

	w := doJSON(t, s, http.MethodPost, orderBase+"/payments", map[string]any{"method": "CARD", "provider": "MOBILEPAY"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "mobilepay takes wallets only")

	w = doJSON(t, s, http.MethodPost, orderBase+"/payments", map[string]any{"method": "CARD", "provider": "STRIPE"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	started := decode[struct {
		Payment    paymentResp         `json:"payment"`
		Initiation provider.Initiation `json:"initiation"`
	}](t, w)
	assert.Equal(t, domain.PaymentStatusPending, started.Payment.Status)
	assert.True(t, strings.HasPrefix(started.Initiation.Reference, "pi_"))
	payBase := "/api/v1/payments/" + started.Payment.ID.String()

	w = doJSON(t, s, http.MethodGet, orderBase+"/payment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, started.Payment.ID, decode[paymentResp](t, w).ID)

	w = doJSON(t, s, http.MethodPost, payBase+"/capture", map[string]any{"transaction_id": "ch_1", "amount": usd("34")})
	assert.Equal(t, http.StatusBadRequest, w.Code, "capture needs a reservation")

	w = doJSON(t, s, http.MethodPost, payBase+"/reserve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, s, http.MethodPost, payBase+"/capture", map[string]any{"transaction_id": "ch_1", "amount": usd("34")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.PaymentStatusCaptured, decode[paymentResp](t, w).Status)

	w = doJSON(t, s, http.MethodGet, orderBase, nil)
	assert.Equal(t, domain.OrderStatusPaid, decode[orderResp](t, w).Status)

	w = doJSON(t, s, http.MethodPost, payBase+"/retry", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, s, http.MethodPost, payBase+"/refund", map[string]any{"amount": usd("50")})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decode[map[string]any](t, w)["violations"], 2)

	w = doJSON(t, s, http.MethodPost, payBase+"/refund", map[string]any{"amount": usd("4"), "reason": "damaged box"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, decode[paymentResp](t, w).Status)

	w = doJSON(t, s, http.MethodGet, "/api/v1/payments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFailRetryEndpoints(t *testing.T) {
	s := setupServer(t)
	p := createProduct(t, s, "Aspirin", "10", 5)
	o := decode[orderResp](t, createOrder(t, s, uuid.New(), p.ID, 1))

	w := doJSON(t, s, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/payments", map[string]any{"method": "WALLET", "provider": "MOBILEPAY"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[struct {
		Payment paymentResp `json:"payment"`
	}](t, w).Payment.ID
	payBase := "/api/v1/payments/" + id.String()

	w = doJSON(t, s, http.MethodPost, payBase+"/fail", map[string]any{"reason": "timeout"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PaymentStatusFailed, decode[paymentResp](t, w).Status)

	w = doJSON(t, s, http.MethodPost, payBase+"/retry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PaymentStatusPending, decode[paymentResp](t, w).Status)

	w = doJSON(t, s, http.MethodPost, payBase+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPost, payBase+"/expire", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStripeWebhook(t *testing.T) {
	s := setupServer(t)
	p := createProduct(t, s, "Aspirin", "10", 5)
	o := decode[orderResp](t, createOrder(t, s, uuid.New(), p.ID, 2))
	w := doJSON(t, s, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/payments", map[string]any{"method": "CARD", "provider": "STRIPE"})
	require.Equal(t, http.StatusCreated, w.Code)
	payment := decode[struct {
		Payment paymentResp `json:"payment"`
	}](t, w).Payment

	post := func(path string, body []byte, sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Stripe-Signature", sig)
		rec := httptest.NewRecorder()
		s.Engine().ServeHTTP(rec, req)
		return rec
	}
	body, err := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": "payment_intent.amount_capturable_updated",
		"data": map[string]any{"object": map[string]any{
			"id":       payment.ProviderReference,
			"amount":   3400,
			"currency": "usd",
			"metadata": map[string]string{"payment_id": payment.ID.String()},
		}},
	})
	require.NoError(t, err)

	w = post("/api/v1/webhooks/stripe", body, "t=1,v1=00")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = post("/api/v1/webhooks/stripe", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// mobilepay is configured without a webhook secret
	mp, err := json.Marshal(map[string]any{"reference": payment.ID.String(), "name": "CAPTURED", "success": true})
	require.NoError(t, err)
	w = post("/api/v1/webhooks/mobilepay", mp, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	garbage := []byte("not json")
	w = post("/api/v1/webhooks/stripe", garbage, s.stripe.SignPayload(garbage, time.Now().Unix()))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post("/api/v1/webhooks/paypal", body, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post("/api/v1/webhooks/stripe", body, s.stripe.SignPayload(body, time.Now().Unix()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.PaymentStatusReserved, decode[paymentResp](t, w).Status)
}

func TestProviderEndpoints(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]provider.PublicConfig](t, w), 2)

	w = doJSON(t, s, http.MethodPost, "/api/v1/providers/mobilepay/webhooks", map[string]any{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/providers/mobilepay/webhooks", map[string]any{"url": "https://shop.example.com/hooks/mp"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	hook := decode[provider.Webhook](t, w)

	w = doJSON(t, s, http.MethodGet, "/api/v1/providers/mobilepay/webhooks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]provider.Webhook](t, w), 1)

	w = doJSON(t, s, http.MethodDelete, "/api/v1/providers/mobilepay/webhooks/"+hook.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, s, http.MethodDelete, "/api/v1/providers/mobilepay/webhooks/"+hook.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/providers/paypal/webhooks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupServer(t)
	doJSON(t, s, http.MethodGet, "/api/v1/products", nil)

	w := doJSON(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `backoffice_http_requests_total{handler="/api/v1/products",status="200"} 1`)
}
