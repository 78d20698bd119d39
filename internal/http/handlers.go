package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"backoffice/internal/domain"
	"backoffice/internal/metrics"
	"backoffice/internal/notification"
	"backoffice/internal/provider"
	"backoffice/internal/repository"
	"backoffice/internal/service"
)

type Server struct {
	engine    *gin.Engine
	products  *service.ProductService
	orders    *service.OrderService
	payments  *service.PaymentService
	providers *provider.Registry
	notifier  notification.OrderNotificationService
}

func NewServer(
	products *service.ProductService,
	orders *service.OrderService,
	payments *service.PaymentService,
	providers *provider.Registry,
	notifier notification.OrderNotificationService,
	m *metrics.Metrics,
) *Server {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery(), m.Middleware())
	s := &Server{
		engine:    r,
		products:  products,
		orders:    orders,
		payments:  payments,
		providers: providers,
		notifier:  notifier,
	}
	s.registerRoutes(m)
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes(m *metrics.Metrics) {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)
		products.POST(":id/stock", s.addStock)
		products.POST(":id/variants", s.createVariant)
		products.GET(":id/variants", s.listVariants)

		orders := v1.Group("/orders")
		orders.POST("", s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.POST(":id/status", s.changeOrderStatus)
		orders.POST(":id/cancel", s.cancelOrder)
		orders.POST(":id/payments", s.startPayment)
		orders.GET(":id/payment", s.getOrderPayment)

		payments := v1.Group("/payments")
		payments.GET(":id", s.getPayment)
		payments.POST(":id/reserve", s.reservePayment)
		payments.POST(":id/capture", s.capturePayment)
		payments.POST(":id/fail", s.failPayment)
		payments.POST(":id/retry", s.retryPayment)
		payments.POST(":id/refund", s.refundPayment)
		payments.POST(":id/cancel", s.cancelPayment)
		payments.POST(":id/expire", s.expirePayment)

		providers := v1.Group("/providers")
		providers.GET("", s.listProviders)
		providers.GET(":provider/webhooks", s.listWebhooks)
		providers.POST(":provider/webhooks", s.registerWebhook)
		providers.DELETE(":provider/webhooks/:webhook", s.deleteWebhook)

		v1.POST("/webhooks/:provider", s.handleWebhook)
	}
}

type moneyReq struct {
	Amount   string `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"required"`
}

func (m moneyReq) toMoney() (domain.Money, error) {
	money, err := domain.MoneyFromString(m.Amount, m.Currency)
	if err != nil {
		return domain.Money{}, domain.NewValidationError(domain.EntityProduct, "invalid amount "+m.Amount)
	}
	return money, nil
}

// Product handlers
type createProductReq struct {
	Name   string   `json:"name" binding:"required"`
	SKU    string   `json:"sku" binding:"required"`
	Price  moneyReq `json:"price" binding:"required"`
	Stock  int      `json:"stock" binding:"gte=0"`
	Active *bool    `json:"active"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body createProductReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	price, err := req.Price.toMoney()
	if err != nil {
		respondError(c, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p, err := s.products.Create(c, domain.Product{Name: req.Name, SKU: req.SKU, Price: price, Stock: req.Stock, Active: active})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type updateProductReq struct {
	Name   string   `json:"name" binding:"required"`
	Price  moneyReq `json:"price" binding:"required"`
	Stock  int      `json:"stock" binding:"gte=0"`
	Active bool     `json:"active"`
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body updateProductReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	price, err := req.Price.toMoney()
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := s.products.Update(c, domain.Product{ID: id, Name: req.Name, Price: price, Stock: req.Stock, Active: req.Active})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path string true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.products.Delete(c, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param active query bool false "Only active products"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		NameSubstring: c.Query("q"),
		ActiveOnly:    c.Query("active") == "true",
	}
	list, err := s.products.List(c, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type addStockReq struct {
	Quantity int `json:"quantity"`
}

// @Summary Add stock
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body addStockReq true "Quantity"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id}/stock [post]
func (s *Server) addStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req addStockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.AddStock(c, id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type createVariantReq struct {
	SKU    string    `json:"sku" binding:"required"`
	Name   string    `json:"name"`
	Price  *moneyReq `json:"price"`
	Stock  *int      `json:"stock"`
	Active *bool     `json:"active"`
}

// @Summary Create product variant
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body createVariantReq true "Variant"
// @Success 201 {object} domain.ProductVariant
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id}/variants [post]
func (s *Server) createVariant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req createVariantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v := domain.ProductVariant{ProductID: id, SKU: req.SKU, Name: req.Name, Stock: req.Stock, Active: true}
	if req.Active != nil {
		v.Active = *req.Active
	}
	if req.Price != nil {
		price, err := req.Price.toMoney()
		if err != nil {
			respondError(c, err)
			return
		}
		v.Price = &price
	}
	created, err := s.products.CreateVariant(c, v)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary List product variants
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {array} domain.ProductVariant
// @Failure 404 {object} map[string]string
// @Router /products/{id}/variants [get]
func (s *Server) listVariants(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.products.ListVariants(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	return parseUUID(c, c.Param("id"))
}

func parseUUID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["violations"] = verr.Violations
	}
	c.JSON(mapErrorToStatus(err), body)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, provider.ErrInvalidCallback):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, provider.ErrWebhookNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBusinessRule):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func providerTag(c *gin.Context) domain.PaymentProvider {
	return domain.PaymentProvider(strings.ToUpper(c.Param("provider")))
}
