package checkout

import (
	"errors"
	"fmt"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrValidation             = errors.New("invalid checkout request")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrPersistence            = errors.New("persistence failure")
	ErrCheckoutInProgress     = errors.New("checkout with this idempotency key is already in progress")
	ErrIdempotencyKeyReused   = models.ErrIdempotencyKeyReused
)

// ValidationError rejects a request before any storage access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid checkout: " + e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundKind names what a NotFoundError failed to resolve.
type NotFoundKind string

const (
	KindProduct       NotFoundKind = "product"
	KindInventoryItem NotFoundKind = "inventory item"
)

// NotFoundError reports a product missing from the catalog or a recipe line
// pointing at an inventory item that no longer exists.
type NotFoundError struct {
	Kind NotFoundKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError blocks a checkout that would push an item below its minimum.
// Available is what can still be used before the floor is reached.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Available float64
	Needed    float64
	Unit      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %s %s available, %s %s needed",
		e.ItemName, formatQty(e.Available), e.Unit, formatQty(e.Needed), e.Unit)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConcurrentModificationError means every attempt lost a version race.
type ConcurrentModificationError struct {
	Attempts int
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("inventory changed concurrently, gave up after %d attempts", e.Attempts)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrConcurrentModification }

// PersistenceError wraps a storage failure. Nothing was committed.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkout storage failure: %v", e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Retryable reports whether the caller may safely retry the same request.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrPersistence)
}

func formatQty(v float64) string {
	return fmt.Sprintf("%g", v)
}
