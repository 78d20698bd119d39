package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	info := NewShippingInfo("Jane Doe", "jane@example.com", "", Address{Line1: "1 Main St", City: "Springfield", Country: "US"}, nil)
	return NewOrder(uuid.New(), "usd", info)
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, OrderStatusPending, o.Status())
	assert.Equal(t, "USD", o.Currency())
	assert.True(t, o.TotalAmount().IsZero())
	assert.Equal(t, "USD", o.TotalAmount().Currency())
	require.NotNil(t, o.ShippingInfo().BillingAddress)
	assert.Equal(t, o.ShippingInfo().ShippingAddress, *o.ShippingInfo().BillingAddress)

	events := o.PendingEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(OrderCreated)
	require.True(t, ok)
	assert.Equal(t, o.ID(), created.AggregateID())
	assert.Equal(t, "jane@example.com", created.Email)
	assert.NotEmpty(t, created.EventID())
}

func TestOrderLinesRecalculateSubtotal(t *testing.T) {
	o := newTestOrder(t)
	a := NewOrderLine(uuid.New(), nil, 2, MoneyFromInt(10, "USD"))
	b := NewOrderLine(uuid.New(), nil, 1, MoneyFromInt(5, "USD"))

	require.NoError(t, o.AddOrderLine(a))
	require.NoError(t, o.AddOrderLine(b))
	assert.Equal(t, "25.00 USD", o.Subtotal().String())
	assert.Equal(t, "25.00 USD", o.TotalAmount().String())
	assert.Equal(t, o.ID(), a.OrderID())

	require.NoError(t, o.RemoveOrderLine(a.ID()))
	assert.Equal(t, "5.00 USD", o.Subtotal().String())
	assert.Len(t, o.Lines(), 1)

	err := o.RemoveOrderLine(uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAddOrderLineCurrencyMismatch(t *testing.T) {
	o := newTestOrder(t)
	err := o.AddOrderLine(NewOrderLine(uuid.New(), nil, 1, MoneyFromInt(10, "EUR")))
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))
	assert.Empty(t, o.Lines())
}

func TestOrderLinesFrozenAfterPending(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddOrderLine(NewOrderLine(uuid.New(), nil, 1, MoneyFromInt(10, "USD"))))
	require.NoError(t, o.UpdateStatus(OrderStatusPaid))

	err := o.AddOrderLine(NewOrderLine(uuid.New(), nil, 1, MoneyFromInt(10, "USD")))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Len(t, o.Lines(), 1)
}

func TestUpdateTotal(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.SetSubtotal(MoneyFromInt(25, "USD")))
	require.NoError(t, o.SetShippingCost(MoneyFromInt(10, "USD")))
	require.NoError(t, o.SetTax(MoneyFromInt(5, "USD")))
	require.NoError(t, o.UpdateTotal())
	assert.Equal(t, "40.00 USD", o.TotalAmount().String())

	assert.True(t, errors.Is(o.SetTax(MoneyFromInt(5, "EUR")), ErrCurrencyMismatch))
	assert.Equal(t, "5.00 USD", o.Tax().String())
}

func TestOrderUpdateStatus(t *testing.T) {
	o := newTestOrder(t)
	o.DrainEvents()

	err := o.UpdateStatus(OrderStatusShipped)
	var te *StateTransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "PENDING", te.From)
	assert.Equal(t, "SHIPPED", te.To)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, OrderStatusPending, o.Status())
	assert.Empty(t, o.PendingEvents())

	require.NoError(t, o.UpdateStatus(OrderStatusPaid))
	events := o.DrainEvents()
	require.Len(t, events, 1)
	changed := events[0].(OrderStatusChanged)
	assert.Equal(t, OrderStatusPending, changed.From)
	assert.Equal(t, OrderStatusPaid, changed.To)
	assert.Equal(t, EventOrderStatusChanged, changed.EventName())
	assert.Empty(t, o.DrainEvents())
}

func TestOrderCloneIsIndependent(t *testing.T) {
	o := newTestOrder(t)
	vid := uuid.New()
	require.NoError(t, o.AddOrderLine(NewOrderLine(uuid.New(), &vid, 1, MoneyFromInt(10, "USD"))))

	cp := o.Clone()
	assert.Empty(t, cp.PendingEvents())
	require.NoError(t, cp.UpdateStatus(OrderStatusPaid))
	assert.Equal(t, OrderStatusPending, o.Status())
	cp.ShippingInfo().BillingAddress.City = "Shelbyville"
	assert.Equal(t, "Springfield", o.ShippingInfo().BillingAddress.City)
}
