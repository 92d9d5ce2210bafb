package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidLine     = errors.New("line requests need an item id and a positive quantity")

	// ErrConflict reports that concurrent modification kept the commit from
	// proceeding after the retry budget ran out. Callers should resubmit.
	ErrConflict = errors.New("order could not be committed due to concurrent changes, please retry")

	// errSerialization marks a retryable storage-level conflict. Repositories
	// return it (wrapped) for serialization failures, deadlocks and lock
	// timeouts; the engine retries and never lets it escape.
	errSerialization = errors.New("serialization conflict")
)

type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

type InsufficientStockError struct {
	ItemID    string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: available %d, requested %d",
		e.ItemID, e.Available, e.Requested)
}

type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// PersistenceError hides unexpected storage failures from callers while
// keeping the cause for logs.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "order could not be persisted" }
func (e *PersistenceError) Unwrap() error { return e.Err }
