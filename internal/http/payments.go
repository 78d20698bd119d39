package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backoffice/internal/domain"
	"backoffice/internal/provider"
	"backoffice/internal/service"
)

// заголовки подписи вебхуков по провайдерам
var signatureHeaders = map[domain.PaymentProvider]string{
	domain.ProviderStripe:    "Stripe-Signature",
	domain.ProviderMobilePay: "X-MobilePay-Signature",
}

type startPaymentReq struct {
	Method   domain.PaymentMethod   `json:"method" binding:"required"`
	Provider domain.PaymentProvider `json:"provider" binding:"required"`
}

type startPaymentResp struct {
	Payment    *domain.Payment      `json:"payment"`
	Initiation *provider.Initiation `json:"initiation"`
}

// @Summary Start payment for order
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body startPaymentReq true "Method and provider"
// @Success 201 {object} startPaymentResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/payments [post]
func (s *Server) startPayment(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}
	var req startPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, init, err := s.payments.StartPayment(c, orderID, req.Method, req.Provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, startPaymentResp{Payment: p, Initiation: init})
}

// @Summary Get payment of order
// @Tags payments
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Payment
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/payment [get]
func (s *Server) getOrderPayment(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.payments.GetPaymentForOrder(c, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Get payment by id
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} domain.Payment
// @Failure 404 {object} map[string]string
// @Router /payments/{id} [get]
func (s *Server) getPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.payments.GetPayment(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type reserveReq struct {
	ProviderReference string `json:"provider_reference"`
}

// @Summary Reserve payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param input body reserveReq false "Provider reference"
// @Success 200 {object} domain.Payment
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/reserve [post]
func (s *Server) reservePayment(c *gin.Context) {
	var req reserveReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	s.paymentOp(c, func(id uuid.UUID) (*domain.Payment, error) {
		return s.payments.Reserve(c, id, req.ProviderReference)
	})
}

type captureReq struct {
	TransactionID string   `json:"transaction_id"`
	Amount        moneyReq `json:"amount" binding:"required"`
}

// @Summary Capture payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param input body captureReq true "Capture"
// @Success 200 {object} domain.Payment
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/capture [post]
func (s *Server) capturePayment(c *gin.Context) {
	var req captureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, err := req.Amount.toMoney()
	if err != nil {
		respondError(c, err)
		return
	}
	s.paymentOp(c, func(id uuid.UUID) (*domain.Payment, error) {
		return s.payments.Capture(c, id, req.TransactionID, amount)
	})
}

type failReq struct {
	Reason string `json:"reason"`
}

// @Summary Mark payment as failed
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param input body failReq false "Reason"
// @Success 200 {object} domain.Payment
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/fail [post]
func (s *Server) failPayment(c *gin.Context) {
	var req failReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	s.paymentOp(c, func(id uuid.UUID) (*domain.Payment, error) {
		return s.payments.Fail(c, id, req.Reason)
	})
}

// @Summary Retry failed payment
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} domain.Payment
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/retry [post]
func (s *Server) retryPayment(c *gin.Context) {
	s.paymentOp(c, func(id uuid.UUID) (*domain.Payment, error) {
		return s.payments.Retry(c, id)
	})
}

type refundReq struct {
	Amount moneyReq `json:"amount" binding:"required"`
	Reason string   `json:"reason"`
}

// @Summary Refund payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param input body refundReq true "Refund"
// @Success 200 {object} domain.Payment
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/refund [post]
func (s *Server) refundPayment(c *gin.Context) {
	var req refundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, err := req.Amount.toMoney()
	if err != nil {
		respondError(c, err)
		return
	}
	s.paymentOp(c, func(id uuid.UUID) (*domain.Payment, error) {
		return s.payments.Refund(c, id, service.RefundRequest{Amount: amount, Reason: req.Reason})
	})
}

// @Summary Cancel payment
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} domain.Payment
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/cancel [post]
func (s *Server) cancelPayment(c *gin.Context) {
	s.paymentOp(c, func(id uuid.UUID) (*domain.Payment, error) {
		return s.payments.Cancel(c, id)
	})
}

// @Summary Expire reserved payment
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} domain.Payment
// @Failure 409 {object} map[string]string
// @Router /payments/{id}/expire [post]
func (s *Server) expirePayment(c *gin.Context) {
	s.paymentOp(c, func(id uuid.UUID) (*domain.Payment, error) {
		return s.payments.Expire(c, id)
	})
}

func (s *Server) paymentOp(c *gin.Context, op func(id uuid.UUID) (*domain.Payment, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := op(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Payment provider callback
// @Tags webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Provider tag"
// @Success 200 {object} domain.Payment
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /webhooks/{provider} [post]
func (s *Server) handleWebhook(c *gin.Context) {
	tag := providerTag(c)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	p, err := s.payments.HandleCallback(c, tag, payload, c.GetHeader(signatureHeaders[tag]))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary List enabled payment providers
// @Tags providers
// @Produce json
// @Success 200 {array} provider.PublicConfig
// @Router /providers [get]
func (s *Server) listProviders(c *gin.Context) {
	out := make([]provider.PublicConfig, 0)
	for _, tag := range s.providers.Providers() {
		svc, err := s.providers.Lookup(tag)
		if err != nil {
			continue
		}
		out = append(out, svc.GetProviderConfig())
	}
	c.JSON(http.StatusOK, out)
}

// @Summary List provider webhooks
// @Tags providers
// @Produce json
// @Param provider path string true "Provider tag"
// @Success 200 {array} provider.Webhook
// @Failure 404 {object} map[string]string
// @Router /providers/{provider}/webhooks [get]
func (s *Server) listWebhooks(c *gin.Context) {
	svc, err := s.providers.Lookup(providerTag(c))
	if err != nil {
		respondError(c, err)
		return
	}
	hooks, err := svc.GetWebhooks(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hooks)
}

type registerWebhookReq struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events"`
}

// @Summary Register provider webhook
// @Tags providers
// @Accept json
// @Produce json
// @Param provider path string true "Provider tag"
// @Param input body registerWebhookReq true "Webhook"
// @Success 201 {object} provider.Webhook
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /providers/{provider}/webhooks [post]
func (s *Server) registerWebhook(c *gin.Context) {
	svc, err := s.providers.Lookup(providerTag(c))
	if err != nil {
		respondError(c, err)
		return
	}
	var req registerWebhookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	hook, err := svc.RegisterWebhook(c, req.URL, req.Events)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hook)
}

// @Summary Delete provider webhook
// @Tags providers
// @Param provider path string true "Provider tag"
// @Param webhook path string true "Webhook ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /providers/{provider}/webhooks/{webhook} [delete]
func (s *Server) deleteWebhook(c *gin.Context) {
	svc, err := s.providers.Lookup(providerTag(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := svc.DeleteWebhook(c, c.Param("webhook")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
