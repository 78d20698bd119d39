package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"backoffice/internal/domain"
)

// OrderDetails всё, что нужно для оформления заказа
type OrderDetails struct {
	UserID          uuid.UUID
	Currency        string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	Lines           []LineDetails
}

// OrderDomainService создание заказа и смена его статуса. Хранилищем не пользуется:
// товары и варианты передаются уже загруженными, сохраняет заказ вызывающий.
type OrderDomainService struct {
	validation *OrderValidationService
	pricing    PricingStrategy
	publisher  domain.EventPublisher
}

func NewOrderDomainService(validation *OrderValidationService, pricing PricingStrategy, publisher domain.EventPublisher) *OrderDomainService {
	return &OrderDomainService{validation: validation, pricing: pricing, publisher: publisher}
}

// CreateOrder строит заказ из запрошенных позиций, считает суммы и прогоняет итоговую проверку
func (s *OrderDomainService) CreateOrder(
	ctx context.Context,
	details OrderDetails,
	products map[uuid.UUID]*domain.Product,
	variants map[uuid.UUID]*domain.ProductVariant,
) (*domain.Order, error) {
	if strings.TrimSpace(details.Currency) == "" {
		return nil, domain.NewValidationError(domain.EntityOrder, "order currency must not be blank")
	}
	info := domain.NewShippingInfo(details.CustomerName, details.CustomerEmail, details.CustomerPhone,
		details.ShippingAddress, details.BillingAddress)
	order := domain.NewOrder(details.UserID, details.Currency, info)

	for _, ld := range details.Lines {
		product, ok := products[ld.ProductID]
		if !ok || product == nil {
			return nil, domain.NewNotFound(domain.EntityProduct, ld.ProductID)
		}
		if !product.Active {
			return nil, domain.NewValidationError(domain.EntityOrder, "product "+product.ID.String()+" is not available for sale")
		}
		var variant *domain.ProductVariant
		if ld.VariantID != nil {
			variant = variants[*ld.VariantID]
			if err := s.validation.ValidateVariant(variant, product, ld); err != nil {
				return nil, err
			}
		} else if err := s.validation.ValidateStock(product, ld.Quantity); err != nil {
			return nil, err
		}

		price := domain.Effective(product, variant).Price
		if err := order.AddOrderLine(domain.NewOrderLine(product.ID, ld.VariantID, ld.Quantity, price)); err != nil {
			if errors.Is(err, domain.ErrCurrencyMismatch) {
				return nil, domain.NewValidationError(domain.EntityOrder,
					"product "+product.ID.String()+" is priced in "+price.Currency()+", order currency is "+order.Currency())
			}
			return nil, err
		}
	}

	if err := s.applyPricing(order); err != nil {
		return nil, err
	}
	if err := s.validation.ValidateCreateOrder(order); err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, order.DrainEvents())
	return order, nil
}

func (s *OrderDomainService) applyPricing(order *domain.Order) error {
	subtotal, err := s.pricing.CalculateSubtotal(order)
	if err != nil {
		return err
	}
	shipping, err := s.pricing.CalculateShippingCost(order)
	if err != nil {
		return err
	}
	tax, err := s.pricing.CalculateTax(order)
	if err != nil {
		return err
	}
	if err := order.SetSubtotal(subtotal); err != nil {
		return err
	}
	if err := order.SetShippingCost(shipping); err != nil {
		return err
	}
	if err := order.SetTax(tax); err != nil {
		return err
	}
	return order.UpdateTotal()
}

// UpdateOrderStatus проверяет переход, затем условия для CANCELLED и COMPLETED
func (s *OrderDomainService) UpdateOrderStatus(ctx context.Context, order *domain.Order, next domain.OrderStatus) error {
	if err := s.validation.ValidateStatusTransition(order, next); err != nil {
		return err
	}
	switch next {
	case domain.OrderStatusCancelled:
		if err := s.validation.ValidateOrderCancellation(order); err != nil {
			return err
		}
	case domain.OrderStatusCompleted:
		if err := s.validation.ValidateOrderCompletion(order); err != nil {
			return err
		}
	}
	if err := order.UpdateStatus(next); err != nil {
		return err
	}
	s.publisher.Publish(ctx, order.DrainEvents())
	return nil
}

// CancelOrder сначала проверяет, можно ли вообще отменять заказ в текущем статусе
func (s *OrderDomainService) CancelOrder(ctx context.Context, order *domain.Order) error {
	if err := s.validation.ValidateOrderCancellation(order); err != nil {
		return err
	}
	return s.UpdateOrderStatus(ctx, order, domain.OrderStatusCancelled)
}
