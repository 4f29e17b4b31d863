package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrVariantNotFound        = errors.New("variant not found")
	ErrMissingShippingAddress = errors.New("shipping address is required")
	ErrMissingCustomer        = errors.New("customer name and email are required")
)

// InsufficientStockError carries the variant and the quantity still
// available so clients can adjust instead of retrying blindly.
type InsufficientStockError struct {
	VariantID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}
