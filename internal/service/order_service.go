package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"backoffice/internal/domain"
	"backoffice/internal/metrics"
	"backoffice/internal/repository"
	"backoffice/pkg/logger"
)

// EventScope граница публикации: события, опубликованные внутри fn, уходят только при успехе fn
type EventScope interface {
	Transactional(ctx context.Context, fn func(ctx context.Context) error) error
}

// unitOfWork транзакция хранилища внутри границы публикации событий
type unitOfWork struct {
	tx     repository.TxManager
	events EventScope
}

func (u unitOfWork) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.events.Transactional(ctx, func(ctx context.Context) error {
		return u.tx.WithTransaction(ctx, fn)
	})
}

// OrderService реализует логику заказов поверх OrderDomainService: загрузка, списание остатков, сохранение
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	uow      unitOfWork
	domain   *OrderDomainService
	metrics  *metrics.Metrics
}

func NewOrderService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	tx repository.TxManager,
	events EventScope,
	domainSvc *OrderDomainService,
	m *metrics.Metrics,
) *OrderService {
	return &OrderService{
		products: products,
		orders:   orders,
		uow:      unitOfWork{tx: tx, events: events},
		domain:   domainSvc,
		metrics:  m,
	}
}

// PlaceOrder проверка остатков и их списание выполняются в одной транзакции;
// версии товаров защищают от параллельного списания.
func (s *OrderService) PlaceOrder(ctx context.Context, details OrderDetails) (*domain.Order, error) {
	var created *domain.Order
	err := s.uow.do(ctx, func(ctx context.Context) error {
		products, variants, err := s.loadCatalog(ctx, details.Lines)
		if err != nil {
			return err
		}
		order, err := s.domain.CreateOrder(ctx, details, products, variants)
		if err != nil {
			return err
		}

		touchedProducts := make(map[uuid.UUID]struct{})
		touchedVariants := make(map[uuid.UUID]struct{})
		for _, l := range order.Lines() {
			p := products[l.ProductID()]
			var v *domain.ProductVariant
			if vid := l.VariantID(); vid != nil {
				v = variants[*vid]
			}
			// lines of the same product draw from the same stock
			if err := domain.DeductStock(p, v, l.Quantity()); err != nil {
				return err
			}
			if v != nil && v.Stock != nil {
				touchedVariants[v.ID] = struct{}{}
			} else {
				touchedProducts[p.ID] = struct{}{}
			}
		}
		for id := range touchedProducts {
			if err := s.products.Update(ctx, products[id]); err != nil {
				return err
			}
		}
		for id := range touchedVariants {
			if err := s.products.UpdateVariant(ctx, variants[id]); err != nil {
				return err
			}
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.metrics.StockRejections.Inc()
		}
		logger.Log.Warn("order rejected", logger.Stringer("user_id", details.UserID), logger.Error(err))
		return nil, err
	}
	s.metrics.OrdersCreated.Inc()
	logger.Log.Info("order placed",
		logger.Stringer("order_id", created.ID()),
		logger.Stringer("total", created.TotalAmount()),
		logger.Int("lines", len(created.Lines())),
	)
	return created, nil
}

// loadCatalog собирает товары и варианты позиций; отсутствующий вариант просто не попадает в карту,
// чтобы его отсутствие обнаружила проверка варианта.
func (s *OrderService) loadCatalog(ctx context.Context, lines []LineDetails) (map[uuid.UUID]*domain.Product, map[uuid.UUID]*domain.ProductVariant, error) {
	products := make(map[uuid.UUID]*domain.Product, len(lines))
	variants := make(map[uuid.UUID]*domain.ProductVariant)
	for _, l := range lines {
		if _, ok := products[l.ProductID]; !ok {
			p, err := s.products.GetByID(ctx, l.ProductID)
			if err != nil {
				return nil, nil, err
			}
			products[p.ID] = p
		}
		if l.VariantID == nil {
			continue
		}
		if _, ok := variants[*l.VariantID]; ok {
			continue
		}
		v, err := s.products.GetVariant(ctx, *l.VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		variants[v.ID] = v
	}
	return products, variants, nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page repository.Page) ([]*domain.Order, int, error) {
	return s.orders.ListByUser(ctx, userID, page)
}

// ChangeStatus переводит заказ в новый статус; при отмене товары возвращаются на склад
func (s *OrderService) ChangeStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	return s.mutate(ctx, id, func(ctx context.Context, o *domain.Order) error {
		if err := s.domain.UpdateOrderStatus(ctx, o, next); err != nil {
			return err
		}
		if next == domain.OrderStatusCancelled {
			return s.restock(ctx, o)
		}
		return nil
	})
}

// CancelOrder если заказ ещё не завершён, возвращаем товары на склад и ставим CANCELLED
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.mutate(ctx, id, func(ctx context.Context, o *domain.Order) error {
		if err := s.domain.CancelOrder(ctx, o); err != nil {
			return err
		}
		return s.restock(ctx, o)
	})
}

func (s *OrderService) mutate(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, o *domain.Order) error) (*domain.Order, error) {
	var updated *domain.Order
	var from domain.OrderStatus
	err := s.uow.do(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from = o.Status()
		if err := fn(ctx, o); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		logger.Log.Warn("order update rejected", logger.Stringer("order_id", id), logger.Error(err))
		return nil, err
	}
	if from != updated.Status() {
		s.metrics.OrderTransitions.WithLabelValues(string(from), string(updated.Status())).Inc()
		logger.Log.Info("order status changed",
			logger.Stringer("order_id", id),
			logger.String("from", string(from)),
			logger.String("to", string(updated.Status())),
		)
	}
	return updated, nil
}

func (s *OrderService) restock(ctx context.Context, o *domain.Order) error {
	for _, l := range o.Lines() {
		p, err := s.products.GetByID(ctx, l.ProductID())
		if err != nil {
			return err
		}
		var v *domain.ProductVariant
		if vid := l.VariantID(); vid != nil {
			if v, err = s.products.GetVariant(ctx, *vid); err != nil {
				return err
			}
		}
		if err := domain.RestockEffective(p, v, l.Quantity()); err != nil {
			return err
		}
		if v != nil && v.Stock != nil {
			if err := s.products.UpdateVariant(ctx, v); err != nil {
				return err
			}
			continue
		}
		if err := s.products.Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
