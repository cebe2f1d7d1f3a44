package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the sale service.
var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrSaleNotFound  = errors.New("sale not found")
	ErrAlreadyVoided = errors.New("sale already voided")
)

// ProductNotFoundError reports a cart entry whose SKU matches no active product.
type ProductNotFoundError struct {
	SKU string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.SKU)
}

// InvalidQuantityError reports a cart entry with a non-positive quantity.
type InvalidQuantityError struct {
	SKU      string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	if e.SKU == "" {
		return fmt.Sprintf("invalid quantity %d", e.Quantity)
	}
	return fmt.Sprintf("invalid quantity %d for %s", e.Quantity, e.SKU)
}

// InvalidDiscountError reports a discount percentage outside [0, 100].
// SKU is empty for the order-level discount.
type InvalidDiscountError struct {
	SKU string
	Pct string
}

func (e *InvalidDiscountError) Error() string {
	if e.SKU == "" {
		return fmt.Sprintf("invalid order discount %s%%", e.Pct)
	}
	return fmt.Sprintf("invalid discount %s%% for %s", e.Pct, e.SKU)
}

// InsufficientStockError reports a cart that would drive stock negative.
// The whole sale is rejected; no stock is touched.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}
