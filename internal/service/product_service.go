package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"backoffice/internal/domain"
	"backoffice/internal/repository"
	"backoffice/pkg/logger"
)

// ProductService инкапсулирует бизнес-логику вокруг товаров и вариантов
type ProductService struct {
	repo   repository.ProductRepository
	orders repository.OrderRepository
	tx     repository.TxManager
}

func NewProductService(repo repository.ProductRepository, orders repository.OrderRepository, tx repository.TxManager) *ProductService {
	return &ProductService{repo: repo, orders: orders, tx: tx}
}

func validateProduct(p domain.Product, creating bool) error {
	var violations domain.Violations
	if strings.TrimSpace(p.Name) == "" {
		violations.Add("name is required")
	}
	if creating && strings.TrimSpace(p.SKU) == "" {
		violations.Add("sku is required")
	}
	if p.Price.Currency() == "" {
		violations.Add("price currency is required")
	}
	if p.Price.IsNegative() {
		violations.Add("price must not be negative")
	}
	if p.Stock < 0 {
		violations.Add("stock must not be negative")
	}
	return violations.Err(domain.EntityProduct)
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p, true); err != nil {
		return nil, err
	}
	cp := p
	cp.ID = uuid.Nil
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Update меняет название, цену, остаток и активность. Валюту цены нельзя сменить,
// пока у вариантов есть собственные цены в старой валюте.
func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p, false); err != nil {
		return nil, err
	}
	cur, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !cur.Price.SameCurrency(p.Price) {
		variants, err := s.repo.ListVariants(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range variants {
			if v.Price != nil && !v.Price.SameCurrency(p.Price) {
				return nil, &domain.ProductModificationError{
					ProductID: p.ID,
					Reason:    "variant " + v.ID.String() + " is priced in " + v.Price.Currency() + ", product price would be " + p.Price.Currency(),
				}
			}
		}
	}
	cur.Name = p.Name
	cur.Price = p.Price
	cur.Stock = p.Stock
	cur.Active = p.Active
	if err := s.repo.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// Delete товар из незакрытых заказов удалить нельзя. Проверка и удаление идут
// в одной транзакции с оформлением заказов.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		open, err := s.orders.HasOpenOrdersForProduct(ctx, id)
		if err != nil {
			return err
		}
		if open {
			return &domain.ProductDeletionError{ProductID: id, Reason: "product is referenced by open orders"}
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.Log.Info("product deleted", logger.Stringer("product_id", id))
	return nil
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}

func (s *ProductService) AddStock(ctx context.Context, id uuid.UUID, qty int) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.AddStock(qty); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) CreateVariant(ctx context.Context, v domain.ProductVariant) (*domain.ProductVariant, error) {
	p, err := s.repo.GetByID(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	var violations domain.Violations
	if strings.TrimSpace(v.SKU) == "" {
		violations.Add("sku is required")
	}
	if v.Price != nil {
		if !v.Price.SameCurrency(p.Price) {
			violations.Add("variant price currency %s differs from product currency %s", v.Price.Currency(), p.Price.Currency())
		}
		if v.Price.IsNegative() {
			violations.Add("variant price must not be negative")
		}
	}
	if v.Stock != nil && *v.Stock < 0 {
		violations.Add("variant stock must not be negative")
	}
	if err := violations.Err(domain.EntityVariant); err != nil {
		return nil, err
	}
	cp := v.Clone()
	cp.ID = uuid.Nil
	if err := s.repo.CreateVariant(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.ProductVariant, error) {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListVariants(ctx, productID)
}
