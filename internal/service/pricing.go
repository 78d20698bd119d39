package service

import (
	"github.com/shopspring/decimal"

	"backoffice/internal/domain"
)

// PricingStrategy считает производные суммы заказа
type PricingStrategy interface {
	CalculateSubtotal(o *domain.Order) (domain.Money, error)
	CalculateShippingCost(o *domain.Order) (domain.Money, error)
	CalculateTax(o *domain.Order) (domain.Money, error)
}

// FlatRatePricing фиксированная доставка с порогом бесплатной доставки и единая ставка налога.
// Все суммы трактуются в валюте заказа; конвертация валют не поддерживается.
type FlatRatePricing struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPricing() FlatRatePricing {
	return FlatRatePricing{
		ShippingFee:           decimal.NewFromInt(10),
		FreeShippingThreshold: decimal.NewFromInt(100),
		TaxRate:               decimal.RequireFromString("0.20"),
	}
}

var _ PricingStrategy = FlatRatePricing{}

// CalculateSubtotal сумма позиций; нулём служит ноль в валюте заказа
func (p FlatRatePricing) CalculateSubtotal(o *domain.Order) (domain.Money, error) {
	sum := domain.Zero(o.Currency())
	for _, l := range o.Lines() {
		var err error
		if sum, err = sum.Add(l.Total()); err != nil {
			return domain.Money{}, err
		}
	}
	return sum, nil
}

func (p FlatRatePricing) CalculateShippingCost(o *domain.Order) (domain.Money, error) {
	subtotal, err := p.CalculateSubtotal(o)
	if err != nil {
		return domain.Money{}, err
	}
	if subtotal.Amount().GreaterThanOrEqual(p.FreeShippingThreshold) {
		return domain.Zero(o.Currency()), nil
	}
	return domain.NewMoney(p.ShippingFee, o.Currency()), nil
}

// CalculateTax налог с промежуточного итога, округлённый до центов
func (p FlatRatePricing) CalculateTax(o *domain.Order) (domain.Money, error) {
	subtotal, err := p.CalculateSubtotal(o)
	if err != nil {
		return domain.Money{}, err
	}
	return subtotal.MultiplyDecimal(p.TaxRate).Round(2), nil
}
