package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"backoffice/internal/domain"
)

// ErrConflict версия агрегата изменилась с момента загрузки
var ErrConflict = errors.New("concurrent modification")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
	ActiveOnly    bool
}

// Page параметры постраничной выборки
type Page struct {
	Offset int
	Limit  int
}

const defaultPageLimit = 20

func (p Page) normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	return p
}

// ProductRepository интерфейс репозитория товаров и их вариантов
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	CreateVariant(ctx context.Context, v *domain.ProductVariant) error
	GetVariant(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error)
	UpdateVariant(ctx context.Context, v *domain.ProductVariant) error
	ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.ProductVariant, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// ListByUser возвращает страницу заказов пользователя (новые первыми) и общее число
	ListByUser(ctx context.Context, userID uuid.UUID, page Page) ([]*domain.Order, int, error)
	// HasOpenOrdersForProduct есть ли нетерминальные заказы с этим товаром
	HasOpenOrdersForProduct(ctx context.Context, productID uuid.UUID) (bool, error)
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// TxManager абстракция транзакции. Для in-memory: глобальная блокировка записи с откатом.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
