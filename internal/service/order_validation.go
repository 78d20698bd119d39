package service

import (
	"strings"

	"github.com/google/uuid"

	"backoffice/internal/domain"
)

// LineDetails запрошенная позиция заказа
type LineDetails struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// OrderValidationService проверки заказа перед изменением состояния.
// Методы не меняют переданные объекты.
type OrderValidationService struct{}

func NewOrderValidationService() *OrderValidationService { return &OrderValidationService{} }

// ValidateCreateOrder собирает все нарушения за один проход
func (v *OrderValidationService) ValidateCreateOrder(o *domain.Order) error {
	var violations domain.Violations
	lines := o.Lines()
	if len(lines) == 0 {
		violations.Add("order must contain at least one line")
	}
	if strings.TrimSpace(o.Currency()) == "" {
		violations.Add("order currency must not be blank")
	}
	if o.ShippingInfo() == nil {
		violations.Add("shipping information is required")
	}
	for i, l := range lines {
		if l.Quantity() <= 0 {
			violations.Add("line %d (product %s): quantity must be greater than zero, got %d", i+1, l.ProductID(), l.Quantity())
		}
		if !l.UnitPrice().IsPositive() {
			violations.Add("line %d (product %s): unit price must be positive, got %s", i+1, l.ProductID(), l.UnitPrice())
		}
	}
	return violations.Err(domain.EntityOrder)
}

// ValidateStatusTransition проверка по таблице переходов заказа
func (v *OrderValidationService) ValidateStatusTransition(o *domain.Order, next domain.OrderStatus) error {
	if o.Status().CanTransitionTo(next) {
		return nil
	}
	return &domain.StateTransitionError{
		Entity:      domain.EntityOrder,
		AggregateID: o.ID(),
		From:        string(o.Status()),
		To:          string(next),
		Reason:      "transition not allowed",
	}
}

// ValidateOrderCancellation отменить нельзя завершённый или закрытый заказ
func (v *OrderValidationService) ValidateOrderCancellation(o *domain.Order) error {
	s := o.Status()
	if s.IsTerminal() || s == domain.OrderStatusCompleted {
		return domain.NewValidationError(domain.EntityOrder, "cannot cancel order in terminal status "+string(s))
	}
	return nil
}

func (v *OrderValidationService) ValidateOrderCompletion(o *domain.Order) error {
	if o.Status() != domain.OrderStatusShipped {
		return domain.NewValidationError(domain.EntityOrder,
			"order must be "+string(domain.OrderStatusShipped)+" to complete, current status is "+string(o.Status()))
	}
	return nil
}

func (v *OrderValidationService) ValidateStock(p *domain.Product, qty int) error {
	if p.Stock < qty {
		return &domain.InsufficientStockError{ProductID: p.ID, Requested: qty, Available: p.Stock}
	}
	return nil
}

func (v *OrderValidationService) ValidateVariant(variant *domain.ProductVariant, p *domain.Product, line LineDetails) error {
	if variant == nil {
		id := ""
		if line.VariantID != nil {
			id = line.VariantID.String()
		}
		return &domain.NotFoundError{Entity: domain.EntityVariant, ID: id}
	}
	if !variant.BelongsTo(p) {
		return domain.NewValidationError(domain.EntityOrder,
			"variant "+variant.ID.String()+" does not belong to product "+p.ID.String())
	}
	if stock := domain.Effective(p, variant).Stock; stock < line.Quantity {
		id := variant.ID
		return &domain.InsufficientStockError{ProductID: p.ID, VariantID: &id, Requested: line.Quantity, Available: stock}
	}
	return nil
}
