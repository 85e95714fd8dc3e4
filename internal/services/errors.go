package services

import (
	"errors"
	"fmt"

	"github.com/hanko-field/bookstore/internal/repositories"
)

var (
	// ErrProductNotFound indicates the product is absent or inactive.
	ErrProductNotFound = errors.New("catalog service: product not found")
	// ErrInsufficientStock indicates stock is below the requested increment.
	ErrInsufficientStock = errors.New("cart service: insufficient stock")
	// ErrInvalidQuantity indicates a negative quantity.
	ErrInvalidQuantity = errors.New("cart service: invalid quantity")
	// ErrInvalidProductID indicates the product id is blank.
	ErrInvalidProductID = errors.New("cart service: product id is required")
	// ErrInvalidAmount indicates a checkout amount below the minimum.
	ErrInvalidAmount = errors.New("checkout service: invalid amount")
	// ErrInvalidSessionID indicates a blank checkout session id.
	ErrInvalidSessionID = errors.New("checkout service: session id is required")
	// ErrPaymentGateway wraps every payment provider failure.
	ErrPaymentGateway = errors.New("checkout service: payment gateway error")
	// ErrStorageUnavailable indicates the backing store could not be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StockError reports the requested and available quantity. It matches ErrInsufficientStock.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("cart service: insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// storageError translates repository failures. Not-found maps to notFound when given.
func storageError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && repositories.IsNotFound(err) {
		return notFound
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
