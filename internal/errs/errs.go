// Package errs provides the error taxonomy for the fulfillment service.
// Each error type pairs a sentinel (for errors.Is classification at the
// API boundary) with a struct carrying diagnostic fields.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrOutOfStock      = errors.New("out of stock")
	ErrUnauthenticated = errors.New("authentication failed")
	ErrForbidden       = errors.New("not authorized")
	ErrPaymentRejected = errors.New("payment rejected")
)

// ValidationError reports malformed or missing input
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError reports a missing order or product
type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// OutOfStockError reports insufficient inventory for a reservation.
// Available carries the current stock for diagnostics.
type OutOfStockError struct {
	Product   string
	Available int
	Requested int
}

func NewOutOfStockError(product string, available, requested int) *OutOfStockError {
	return &OutOfStockError{Product: product, Available: available, Requested: requested}
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: available %d, requested %d",
		e.Product, e.Available, e.Requested)
}

func (e *OutOfStockError) Unwrap() error {
	return ErrOutOfStock
}

// PaymentRejectedError reports an upstream payment that did not succeed
type PaymentRejectedError struct {
	Status string
}

func NewPaymentRejectedError(status string) *PaymentRejectedError {
	return &PaymentRejectedError{Status: status}
}

func (e *PaymentRejectedError) Error() string {
	return fmt.Sprintf("payment rejected: status %q", e.Status)
}

func (e *PaymentRejectedError) Unwrap() error {
	return ErrPaymentRejected
}
