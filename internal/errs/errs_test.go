package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"fulfillment-service/internal/errs"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := errs.NewNotFoundError("order", "abc-123")

	assert.Equal(t, "order not found: abc-123", err.Error())
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.False(t, errors.Is(err, errs.ErrOutOfStock))
}

func TestOutOfStockError(t *testing.T) {
	err := errs.NewOutOfStockError("Airpods", 3, 5)

	assert.Equal(t, "not enough stock for Airpods: available 3, requested 5", err.Error())
	assert.True(t, errors.Is(err, errs.ErrOutOfStock))

	var oos *errs.OutOfStockError
	assert.True(t, errors.As(err, &oos))
	assert.Equal(t, 3, oos.Available)
	assert.Equal(t, 5, oos.Requested)
}

func TestWrappedClassification(t *testing.T) {
	inner := errs.NewOutOfStockError("Camera", 0, 1)
	wrapped := fmt.Errorf("reserve stock: %w", inner)

	assert.True(t, errors.Is(wrapped, errs.ErrOutOfStock))

	var oos *errs.OutOfStockError
	assert.True(t, errors.As(wrapped, &oos))
	assert.Equal(t, "Camera", oos.Product)
}

func TestValidationError(t *testing.T) {
	err := errs.NewValidationError("no order items")

	assert.Equal(t, "validation failed: no order items", err.Error())
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestPaymentRejectedError(t *testing.T) {
	err := errs.NewPaymentRejectedError("failed")

	assert.Equal(t, `payment rejected: status "failed"`, err.Error())
	assert.True(t, errors.Is(err, errs.ErrPaymentRejected))
}
