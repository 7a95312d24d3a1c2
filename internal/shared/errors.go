package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every error returned by a service wraps exactly one of these.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientMaterial = errors.New("insufficient material")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflict")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthorized         = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
)

// Error is a kind plus a message meant for the end user.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing or soft-deleted entity.
func NotFound(format string, args ...any) error { return newError(ErrNotFound, format, args...) }

// InvalidState reports a transition the entity's current state forbids.
func InvalidState(format string, args ...any) error {
	return newError(ErrInvalidState, format, args...)
}

// Validation reports structurally invalid input.
func Validation(format string, args ...any) error { return newError(ErrValidation, format, args...) }

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) error { return newError(ErrConflict, format, args...) }

// Forbidden reports an actor acting outside its scope.
func Forbidden(format string, args ...any) error { return newError(ErrForbidden, format, args...) }

// QuantityError describes a shortfall at one counter.
type QuantityError struct {
	Kind      error
	Counter   string
	Subject   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("insufficient %s for %s: available %s, requested %s",
		e.Counter, e.Subject, e.Available.String(), e.Requested.String())
}

func (e *QuantityError) Unwrap() error { return e.Kind }

// InsufficientStock builds a stock shortfall. counter names where the stock
// lives ("factory stock", "stock at Store A").
func InsufficientStock(counter, subject string, available, requested int) error {
	return &QuantityError{
		Kind:      ErrInsufficientStock,
		Counter:   counter,
		Subject:   subject,
		Available: decimal.NewFromInt(int64(available)),
		Requested: decimal.NewFromInt(int64(requested)),
	}
}

// InsufficientMaterial builds a fabric metre shortfall.
func InsufficientMaterial(subject string, available, requested decimal.Decimal) error {
	return &QuantityError{
		Kind:      ErrInsufficientMaterial,
		Counter:   "fabric metres",
		Subject:   subject,
		Available: available,
		Requested: requested,
	}
}
