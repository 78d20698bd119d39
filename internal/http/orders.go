package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backoffice/internal/domain"
	"backoffice/internal/notification"
	"backoffice/internal/repository"
	"backoffice/internal/service"
)

type createOrderReq struct {
	UserID          uuid.UUID             `json:"user_id" binding:"required"`
	Currency        string                `json:"currency"`
	CustomerName    string                `json:"customer_name"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerPhone   string                `json:"customer_phone"`
	ShippingAddress domain.Address        `json:"shipping_address"`
	BillingAddress  *domain.Address       `json:"billing_address"`
	Lines           []service.LineDetails `json:"lines"`
}

// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.PlaceOrder(c, service.OrderDetails{
		UserID:          req.UserID,
		Currency:        req.Currency,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Lines:           req.Lines,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	notification.NotifyCreated(c, s.notifier, o)
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := s.orders.GetOrder(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary List orders of a user
// @Tags orders
// @Produce json
// @Param user_id query string true "User ID"
// @Param offset query int false "Offset"
// @Param limit query int false "Limit"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	userID, ok := parseUUID(c, c.Query("user_id"))
	if !ok {
		return
	}
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, total, err := s.orders.ListOrders(c, userID, repository.Page{Offset: offset, Limit: limit})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list, "total": total})
}

type changeStatusReq struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// @Summary Change order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body changeStatusReq true "Target status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [post]
func (s *Server) changeOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req changeStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !req.Status.Valid() {
		respondError(c, domain.NewValidationError(domain.EntityOrder, "unknown order status "+string(req.Status)))
		return
	}
	s.transitionOrder(c, id, func() (*domain.Order, error) {
		return s.orders.ChangeStatus(c, id, req.Status)
	})
}

// @Summary Cancel order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.transitionOrder(c, id, func() (*domain.Order, error) {
		return s.orders.CancelOrder(c, id)
	})
}

// transitionOrder запоминает прежний статус, чтобы уведомить покупателя о смене
func (s *Server) transitionOrder(c *gin.Context, id uuid.UUID, change func() (*domain.Order, error)) {
	before, err := s.orders.GetOrder(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	o, err := change()
	if err != nil {
		respondError(c, err)
		return
	}
	notification.Notify(c, s.notifier, o, before.Status())
	c.JSON(http.StatusOK, o)
}
