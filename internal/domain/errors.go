package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Категории ошибок. Типизированные ошибки ниже сопоставляются с ними через errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")
	ErrBusinessRule = errors.New("business rule violated")
)

// Entity имя агрегата, к которому относится ошибка
type Entity string

const (
	EntityOrder    Entity = "order"
	EntityPayment  Entity = "payment"
	EntityProduct  Entity = "product"
	EntityVariant  Entity = "variant"
	EntityUser     Entity = "user"
	EntityProvider Entity = "payment provider"
)

// ValidationError содержит все найденные нарушения, а не только первое
type ValidationError struct {
	Entity     Entity
	Violations []string
}

func NewValidationError(entity Entity, violations ...string) *ValidationError {
	return &ValidationError{Entity: entity, Violations: violations}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Entity, strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Violations накапливает нарушения за один проход проверки
type Violations []string

func (v *Violations) Add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

// Err возвращает nil, если нарушений нет
func (v Violations) Err(entity Entity) error {
	if len(v) == 0 {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return &ValidationError{Entity: entity, Violations: out}
}

// StateTransitionError переход запрещён таблицей состояний; агрегат не изменён
type StateTransitionError struct {
	Entity      Entity
	AggregateID uuid.UUID
	From        string
	To          string
	Reason      string
}

func (e *StateTransitionError) Error() string {
	msg := fmt.Sprintf("%s %s: invalid transition %s -> %s", e.Entity, e.AggregateID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *StateTransitionError) Is(target error) bool { return target == ErrInvalidState }

type NotFoundError struct {
	Entity Entity
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFound(entity Entity, id fmt.Stringer) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// InsufficientStockError несёт запрошенное и доступное количество, чтобы вызывающий
// мог объяснить отказ без повторного запроса.
type InsufficientStockError struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.VariantID != nil {
		return fmt.Sprintf("insufficient stock for product %s variant %s: requested %d, available %d",
			e.ProductID, *e.VariantID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrBusinessRule }

type ProductDeletionError struct {
	ProductID uuid.UUID
	Reason    string
}

func (e *ProductDeletionError) Error() string {
	return fmt.Sprintf("product %s cannot be deleted: %s", e.ProductID, e.Reason)
}

func (e *ProductDeletionError) Is(target error) bool { return target == ErrBusinessRule }

type ProductModificationError struct {
	ProductID uuid.UUID
	Reason    string
}

func (e *ProductModificationError) Error() string {
	return fmt.Sprintf("product %s cannot be modified: %s", e.ProductID, e.Reason)
}

func (e *ProductModificationError) Is(target error) bool { return target == ErrBusinessRule }
