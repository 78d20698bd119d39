package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/domain"
)

// MemoryStore объединённое in-memory хранилище товаров, заказов и платежей
type MemoryStore struct {
	mu           sync.RWMutex
	productsByID map[uuid.UUID]domain.Product
	variantsByID map[uuid.UUID]domain.ProductVariant
	ordersByID   map[uuid.UUID]*domain.Order
	paymentsByID map[uuid.UUID]*domain.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		productsByID: make(map[uuid.UUID]domain.Product),
		variantsByID: make(map[uuid.UUID]domain.ProductVariant),
		ordersByID:   make(map[uuid.UUID]*domain.Order),
		paymentsByID: make(map[uuid.UUID]*domain.Payment),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Version = 1
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityProduct, id)
	}
	// return copy
	cp := p
	return &cp, nil
}

// Update optimistic: версия должна совпадать с сохранённой, после записи увеличивается
func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	cur, ok := m.productsByID[p.ID]
	if !ok {
		return domain.NewNotFound(domain.EntityProduct, p.ID)
	}
	if cur.Version != p.Version {
		return fmt.Errorf("product %s: %w", p.ID, ErrConflict)
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return domain.NewNotFound(domain.EntityProduct, id)
	}
	delete(m.productsByID, id)
	for vid, v := range m.variantsByID {
		if v.ProductID == id {
			delete(m.variantsByID, vid)
		}
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		if f.ActiveOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	_, ok := m.productsByID[id]
	return ok, nil
}

func (m *MemoryStore) CreateVariant(ctx context.Context, v *domain.ProductVariant) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[v.ProductID]; !ok {
		return domain.NewNotFound(domain.EntityProduct, v.ProductID)
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	v.Version = 1
	m.variantsByID[v.ID] = v.Clone()
	return nil
}

func (m *MemoryStore) GetVariant(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	v, ok := m.variantsByID[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityVariant, id)
	}
	cp := v.Clone()
	return &cp, nil
}

func (m *MemoryStore) UpdateVariant(ctx context.Context, v *domain.ProductVariant) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	cur, ok := m.variantsByID[v.ID]
	if !ok {
		return domain.NewNotFound(domain.EntityVariant, v.ID)
	}
	if cur.Version != v.Version {
		return fmt.Errorf("variant %s: %w", v.ID, ErrConflict)
	}
	v.Version++
	v.UpdatedAt = time.Now().UTC()
	m.variantsByID[v.ID] = v.Clone()
	return nil
}

func (m *MemoryStore) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.ProductVariant, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.ProductVariant, 0)
	for _, v := range m.variantsByID {
		if v.ProductID == productID {
			out = append(out, v.Clone())
		}
	}
	slices.SortFunc(out, func(a, b domain.ProductVariant) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID()]; ok {
		return fmt.Errorf("order %s: %w", o.ID(), ErrConflict)
	}
	o.SetVersion(1)
	mo.store.ordersByID[o.ID()] = o.Clone()
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityOrder, id)
	}
	return o.Clone(), nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	cur, ok := mo.store.ordersByID[o.ID()]
	if !ok {
		return domain.NewNotFound(domain.EntityOrder, o.ID())
	}
	if cur.Version() != o.Version() {
		return fmt.Errorf("order %s: %w", o.ID(), ErrConflict)
	}
	o.SetVersion(o.Version() + 1)
	mo.store.ordersByID[o.ID()] = o.Clone()
	return nil
}

func (mo *MemoryOrders) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	_, ok := mo.store.ordersByID[id]
	return ok, nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID uuid.UUID, page Page) ([]*domain.Order, int, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	page = page.normalize()
	all := make([]*domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.UserID() == userID {
			all = append(all, o)
		}
	}
	slices.SortFunc(all, func(a, b *domain.Order) int { return b.CreatedAt().Compare(a.CreatedAt()) })
	total := len(all)
	if page.Offset >= total {
		return []*domain.Order{}, total, nil
	}
	end := min(page.Offset+page.Limit, total)
	out := make([]*domain.Order, 0, end-page.Offset)
	for _, o := range all[page.Offset:end] {
		out = append(out, o.Clone())
	}
	return out, total, nil
}

func (mo *MemoryOrders) HasOpenOrdersForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	for _, o := range mo.store.ordersByID {
		if o.Status().IsTerminal() {
			continue
		}
		for _, l := range o.Lines() {
			if l.ProductID() == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

// PaymentRepository implementation
type MemoryPayments struct{ store *MemoryStore }

func NewMemoryPayments(store *MemoryStore) *MemoryPayments { return &MemoryPayments{store: store} }

var _ PaymentRepository = (*MemoryPayments)(nil)

func (mp *MemoryPayments) Create(ctx context.Context, p *domain.Payment) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	for _, existing := range mp.store.paymentsByID {
		if existing.OrderID() == p.OrderID() {
			return fmt.Errorf("payment for order %s: %w", p.OrderID(), ErrConflict)
		}
	}
	p.SetVersion(1)
	mp.store.paymentsByID[p.ID()] = p.Clone()
	return nil
}

func (mp *MemoryPayments) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	p, ok := mp.store.paymentsByID[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityPayment, id)
	}
	return p.Clone(), nil
}

func (mp *MemoryPayments) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	for _, p := range mp.store.paymentsByID {
		if p.OrderID() == orderID {
			return p.Clone(), nil
		}
	}
	return nil, &domain.NotFoundError{Entity: domain.EntityPayment, ID: "for order " + orderID.String()}
}

func (mp *MemoryPayments) Update(ctx context.Context, p *domain.Payment) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	cur, ok := mp.store.paymentsByID[p.ID()]
	if !ok {
		return domain.NewNotFound(domain.EntityPayment, p.ID())
	}
	if cur.Version() != p.Version() {
		return fmt.Errorf("payment %s: %w", p.ID(), ErrConflict)
	}
	p.SetVersion(p.Version() + 1)
	mp.store.paymentsByID[p.ID()] = p.Clone()
	return nil
}

func (mp *MemoryPayments) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	for _, p := range mp.store.paymentsByID {
		if p.OrderID() == orderID {
			return true, nil
		}
	}
	return false, nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

var _ TxManager = (*MemoryTx)(nil)

// WithTransaction держит блокировку записи на время fn; при ошибке состояние откатывается.
// Вложенный вызов выполняется в рамках внешней транзакции.
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	// stored values are never mutated in place, shallow map copies are enough to roll back
	products := maps.Clone(tx.store.productsByID)
	variants := maps.Clone(tx.store.variantsByID)
	orders := maps.Clone(tx.store.ordersByID)
	payments := maps.Clone(tx.store.paymentsByID)

	ctx = context.WithValue(ctx, txKey{}, true)
	if err := fn(ctx); err != nil {
		tx.store.productsByID = products
		tx.store.variantsByID = variants
		tx.store.ordersByID = orders
		tx.store.paymentsByID = payments
		return err
	}
	return nil
}
