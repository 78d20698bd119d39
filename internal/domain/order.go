package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Address почтовый адрес
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderShippingInfo снимок контактов и адресов на момент оформления
type OrderShippingInfo struct {
	CustomerName    string   `json:"customer_name"`
	CustomerEmail   string   `json:"customer_email"`
	CustomerPhone   string   `json:"customer_phone,omitempty"`
	ShippingAddress Address  `json:"shipping_address"`
	BillingAddress  *Address `json:"billing_address,omitempty"`
}

// NewShippingInfo подставляет адрес доставки, если платёжный адрес не указан
func NewShippingInfo(name, email, phone string, shipping Address, billing *Address) *OrderShippingInfo {
	if billing == nil {
		b := shipping
		billing = &b
	}
	return &OrderShippingInfo{
		CustomerName:    name,
		CustomerEmail:   email,
		CustomerPhone:   phone,
		ShippingAddress: shipping,
		BillingAddress:  billing,
	}
}

// OrderLine позиция заказа. Не меняется после создания: только удалить и добавить заново.
type OrderLine struct {
	id        uuid.UUID
	orderID   uuid.UUID
	productID uuid.UUID
	variantID *uuid.UUID
	quantity  int
	unitPrice Money
}

func NewOrderLine(productID uuid.UUID, variantID *uuid.UUID, quantity int, unitPrice Money) *OrderLine {
	var vid *uuid.UUID
	if variantID != nil {
		v := *variantID
		vid = &v
	}
	return &OrderLine{
		id:        uuid.New(),
		productID: productID,
		variantID: vid,
		quantity:  quantity,
		unitPrice: unitPrice,
	}
}

func (l *OrderLine) ID() uuid.UUID         { return l.id }
func (l *OrderLine) OrderID() uuid.UUID    { return l.orderID }
func (l *OrderLine) ProductID() uuid.UUID  { return l.productID }
func (l *OrderLine) VariantID() *uuid.UUID { return l.variantID }
func (l *OrderLine) Quantity() int         { return l.quantity }
func (l *OrderLine) UnitPrice() Money      { return l.unitPrice }

// Total = unitPrice * quantity
func (l *OrderLine) Total() Money {
	return l.unitPrice.Multiply(int64(l.quantity))
}

// Order корень агрегата заказа
type Order struct {
	id           uuid.UUID
	userID       uuid.UUID
	status       OrderStatus
	currency     string
	lines        []*OrderLine
	subtotal     Money
	shippingCost Money
	tax          Money
	totalAmount  Money
	shippingInfo *OrderShippingInfo
	createdAt    time.Time
	updatedAt    time.Time
	version      int64

	eventBuffer
}

// NewOrder фабрика заказа: статус PENDING, нулевые суммы в валюте заказа, событие OrderCreated
func NewOrder(userID uuid.UUID, currency string, info *OrderShippingInfo) *Order {
	now := time.Now().UTC()
	currency = normalizeCurrency(currency)
	o := &Order{
		id:           uuid.New(),
		userID:       userID,
		status:       OrderStatusPending,
		currency:     currency,
		subtotal:     Zero(currency),
		shippingCost: Zero(currency),
		tax:          Zero(currency),
		totalAmount:  Zero(currency),
		shippingInfo: info,
		createdAt:    now,
		updatedAt:    now,
	}
	var email string
	if info != nil {
		email = info.CustomerEmail
	}
	o.record(OrderCreated{
		EventMeta: newMeta(o.id, now),
		UserID:    userID,
		Currency:  currency,
		Email:     email,
	})
	return o
}

func (o *Order) ID() uuid.UUID                    { return o.id }
func (o *Order) UserID() uuid.UUID                { return o.userID }
func (o *Order) Status() OrderStatus              { return o.status }
func (o *Order) Currency() string                 { return o.currency }
func (o *Order) Subtotal() Money                  { return o.subtotal }
func (o *Order) ShippingCost() Money              { return o.shippingCost }
func (o *Order) Tax() Money                       { return o.tax }
func (o *Order) TotalAmount() Money               { return o.totalAmount }
func (o *Order) ShippingInfo() *OrderShippingInfo { return o.shippingInfo }
func (o *Order) CreatedAt() time.Time             { return o.createdAt }
func (o *Order) UpdatedAt() time.Time             { return o.updatedAt }
func (o *Order) Version() int64                   { return o.version }

// SetVersion вызывается только хранилищем
func (o *Order) SetVersion(v int64) { o.version = v }

// Lines возвращает копию списка позиций
func (o *Order) Lines() []*OrderLine {
	return slices.Clone(o.lines)
}

func (o *Order) checkCurrency(field string, m Money) error {
	if m.Currency() != o.currency {
		return fmt.Errorf("%w: order %s has currency %s, %s is in %s",
			ErrCurrencyMismatch, o.id, o.currency, field, m.Currency())
	}
	return nil
}

func (o *Order) ensureEditable() error {
	if o.status != OrderStatusPending {
		return NewValidationError(EntityOrder,
			fmt.Sprintf("order lines can only be modified while %s, current status is %s", OrderStatusPending, o.status))
	}
	return nil
}

// AddOrderLine добавляет позицию и сразу пересчитывает промежуточный итог
func (o *Order) AddOrderLine(line *OrderLine) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	if err := o.checkCurrency("line unit price", line.unitPrice); err != nil {
		return err
	}
	line.orderID = o.id
	o.lines = append(o.lines, line)
	return o.recalculate()
}

func (o *Order) RemoveOrderLine(lineID uuid.UUID) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	idx := slices.IndexFunc(o.lines, func(l *OrderLine) bool { return l.id == lineID })
	if idx < 0 {
		return &NotFoundError{Entity: "order line", ID: lineID.String()}
	}
	o.lines = slices.Delete(o.lines, idx, idx+1)
	return o.recalculate()
}

func (o *Order) recalculate() error {
	sum := Zero(o.currency)
	for _, l := range o.lines {
		var err error
		if sum, err = sum.Add(l.Total()); err != nil {
			return err
		}
	}
	o.subtotal = sum
	return o.UpdateTotal()
}

func (o *Order) SetSubtotal(m Money) error {
	if err := o.checkCurrency("subtotal", m); err != nil {
		return err
	}
	o.subtotal = m
	return nil
}

func (o *Order) SetShippingCost(m Money) error {
	if err := o.checkCurrency("shipping cost", m); err != nil {
		return err
	}
	o.shippingCost = m
	return nil
}

func (o *Order) SetTax(m Money) error {
	if err := o.checkCurrency("tax", m); err != nil {
		return err
	}
	o.tax = m
	return nil
}

// UpdateTotal totalAmount = subtotal + shippingCost + tax
func (o *Order) UpdateTotal() error {
	total, err := o.subtotal.Add(o.shippingCost)
	if err != nil {
		return err
	}
	if total, err = total.Add(o.tax); err != nil {
		return err
	}
	o.totalAmount = total
	o.updatedAt = time.Now().UTC()
	return nil
}

// UpdateStatus меняет статус только по таблице переходов и регистрирует OrderStatusChanged
func (o *Order) UpdateStatus(next OrderStatus) error {
	if !o.status.CanTransitionTo(next) {
		return &StateTransitionError{
			Entity:      EntityOrder,
			AggregateID: o.id,
			From:        string(o.status),
			To:          string(next),
			Reason:      "transition not allowed",
		}
	}
	prev := o.status
	now := time.Now().UTC()
	o.status = next
	o.updatedAt = now
	o.record(OrderStatusChanged{EventMeta: newMeta(o.id, now), From: prev, To: next})
	return nil
}

// Clone глубокая копия без буфера событий; используется хранилищем
func (o *Order) Clone() *Order {
	cp := *o
	cp.eventBuffer = eventBuffer{}
	cp.lines = make([]*OrderLine, len(o.lines))
	for i, l := range o.lines {
		lc := *l
		if l.variantID != nil {
			v := *l.variantID
			lc.variantID = &v
		}
		cp.lines[i] = &lc
	}
	if o.shippingInfo != nil {
		info := *o.shippingInfo
		if info.BillingAddress != nil {
			b := *info.BillingAddress
			info.BillingAddress = &b
		}
		cp.shippingInfo = &info
	}
	return &cp
}

type orderLineJSON struct {
	ID        uuid.UUID  `json:"id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
	UnitPrice Money      `json:"unit_price"`
	Total     Money      `json:"total"`
}

type orderJSON struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	Status       OrderStatus        `json:"status"`
	Currency     string             `json:"currency"`
	Lines        []orderLineJSON    `json:"lines"`
	Subtotal     Money              `json:"subtotal"`
	ShippingCost Money              `json:"shipping_cost"`
	Tax          Money              `json:"tax"`
	TotalAmount  Money              `json:"total_amount"`
	ShippingInfo *OrderShippingInfo `json:"shipping_info,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (o *Order) MarshalJSON() ([]byte, error) {
	lines := make([]orderLineJSON, 0, len(o.lines))
	for _, l := range o.lines {
		lines = append(lines, orderLineJSON{
			ID:        l.id,
			ProductID: l.productID,
			VariantID: l.variantID,
			Quantity:  l.quantity,
			UnitPrice: l.unitPrice,
			Total:     l.Total(),
		})
	}
	return json.Marshal(orderJSON{
		ID:           o.id,
		UserID:       o.userID,
		Status:       o.status,
		Currency:     o.currency,
		Lines:        lines,
		Subtotal:     o.subtotal,
		ShippingCost: o.shippingCost,
		Tax:          o.tax,
		TotalAmount:  o.totalAmount,
		ShippingInfo: o.shippingInfo,
		CreatedAt:    o.createdAt,
		UpdatedAt:    o.updatedAt,
	})
}
