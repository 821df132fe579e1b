package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fulfillment-service/internal/errs"
	"fulfillment-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("product", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a product with its initial stock
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, image, price, count_in_stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return s.db.GetContext(ctx, &product.CreatedAt, query,
		product.ID, product.Name, product.Image, product.Price, product.CountInStock)
}

// reserveStock conditionally decrements stock for one product inside tx.
// The row lock taken by FOR UPDATE serializes concurrent reservations of
// the same product, so two orders cannot both pass the availability check
// against the same units. Returns the remaining stock after the decrement.
func (s *Store) reserveStock(ctx context.Context, tx *sqlx.Tx, productID string, quantity int) (int, error) {
	var row struct {
		Name         string `db:"name"`
		CountInStock int    `db:"count_in_stock"`
	}
	err := tx.GetContext(ctx, &row,
		"SELECT name, count_in_stock FROM products WHERE id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errs.NewNotFoundError("product", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock product row: %w", err)
	}

	if row.CountInStock < quantity {
		return 0, errs.NewOutOfStockError(row.Name, row.CountInStock, quantity)
	}

	var remaining int
	err = tx.GetContext(ctx, &remaining,
		"UPDATE products SET count_in_stock = count_in_stock - $1 WHERE id = $2 RETURNING count_in_stock",
		quantity, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return remaining, nil
}
