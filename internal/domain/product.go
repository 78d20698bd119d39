package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product товар каталога: источник цены и остатка для позиций заказа
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Price     Money     `json:"price"`
	Stock     int       `json:"stock"`
	Active    bool      `json:"active"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Product) AddStock(qty int) error {
	if qty <= 0 {
		return NewValidationError(EntityProduct, "stock increment must be positive")
	}
	p.Stock += qty
	return nil
}

// RemoveStock списывает qty; списать весь остаток можно, больше остатка нельзя
func (p *Product) RemoveStock(qty int) error {
	if qty <= 0 {
		return NewValidationError(EntityProduct, "stock decrement must be positive")
	}
	if qty > p.Stock {
		return &InsufficientStockError{ProductID: p.ID, Requested: qty, Available: p.Stock}
	}
	p.Stock -= qty
	return nil
}

// ProductVariant вариант товара (размер, цвет). Цена и остаток необязательны:
// если не заданы, берутся у родительского товара.
type ProductVariant struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Price     *Money    `json:"price,omitempty"`
	Stock     *int      `json:"stock,omitempty"`
	Active    bool      `json:"active"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone копия с собственными указателями на цену и остаток
func (v ProductVariant) Clone() ProductVariant {
	if v.Price != nil {
		p := *v.Price
		v.Price = &p
	}
	if v.Stock != nil {
		s := *v.Stock
		v.Stock = &s
	}
	return v
}

func (v *ProductVariant) BelongsTo(p *Product) bool {
	return v != nil && p != nil && v.ProductID == p.ID
}

// Offer эффективные цена и остаток для пары товар/вариант
type Offer struct {
	Price Money
	Stock int
}

// Effective единственное место, где вариант наследует значения товара.
// v может быть nil: тогда возвращаются значения самого товара.
func Effective(p *Product, v *ProductVariant) Offer {
	o := Offer{Price: p.Price, Stock: p.Stock}
	if v == nil {
		return o
	}
	if v.Price != nil {
		o.Price = *v.Price
	}
	if v.Stock != nil {
		o.Stock = *v.Stock
	}
	return o
}

// DeductStock списывает qty с того остатка, который является эффективным:
// собственного у варианта, если он задан, иначе у товара.
func DeductStock(p *Product, v *ProductVariant, qty int) error {
	if v == nil || v.Stock == nil {
		if err := p.RemoveStock(qty); err != nil {
			if se, ok := err.(*InsufficientStockError); ok && v != nil {
				id := v.ID
				se.VariantID = &id
			}
			return err
		}
		return nil
	}
	if qty <= 0 {
		return NewValidationError(EntityVariant, "stock decrement must be positive")
	}
	if qty > *v.Stock {
		id := v.ID
		return &InsufficientStockError{ProductID: p.ID, VariantID: &id, Requested: qty, Available: *v.Stock}
	}
	left := *v.Stock - qty
	v.Stock = &left
	return nil
}

// RestockEffective возвращает qty на эффективный остаток (отмена заказа)
func RestockEffective(p *Product, v *ProductVariant, qty int) error {
	if v == nil || v.Stock == nil {
		return p.AddStock(qty)
	}
	if qty <= 0 {
		return NewValidationError(EntityVariant, "stock increment must be positive")
	}
	left := *v.Stock + qty
	v.Stock = &left
	return nil
}
