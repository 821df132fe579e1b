package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/errs"
	"fulfillment-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, user_id, ship_address, ship_city, ship_postal_code, ship_country,
	payment_method, items_price, shipping_price, tax_price, total_price,
	is_paid, paid_at, payment_id, payment_status, payer_email,
	is_delivered, delivered_at, created_at, updated_at`

// CreateOrder persists the order, its line items and every stock
// reservation in one transaction. Any missing product or insufficient
// stock aborts the whole unit: no order row and no decrement survive.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.transact(ctx, func(tx *sqlx.Tx) error {
		if err := s.insertOrder(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if err := s.insertOrderItem(ctx, tx, &order.Items[i]); err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}

			if _, err := s.reserveStock(ctx, tx, order.Items[i].ProductID, order.Items[i].Quantity); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Store) insertOrder(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (id, user_id, ship_address, ship_city, ship_postal_code, ship_country,
			payment_method, items_price, shipping_price, tax_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	row := tx.QueryRowxContext(ctx, query,
		order.ID, order.UserID,
		order.Address, order.City, order.PostalCode, order.Country,
		order.PaymentMethod,
		order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice)
	return row.Scan(&order.CreatedAt, &order.UpdatedAt)
}

func (s *Store) insertOrderItem(ctx context.Context, tx *sqlx.Tx, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Image)
}

// GetOrderByID retrieves an order with its line items and the owner's
// display name and email
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT o.*, u.name AS owner_name, u.email AS owner_email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`

	var order models.Order
	err := s.db.GetContext(ctx, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("order", id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadOrderItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) loadOrderItems(ctx context.Context, order *models.Order) error {
	return s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", order.ID)
}

// ListOrders retrieves every order with its owner's name resolved
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT o.*, u.name AS owner_name
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC`

	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, query)
	return orders, err
}

// ListOrdersByUser retrieves orders placed by one user
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		fmt.Sprintf("SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC", orderColumns),
		userID)
	return orders, err
}

// SetOrderPaid records the payment result on an order
func (s *Store) SetOrderPaid(ctx context.Context, id string, paidAt time.Time, paymentID, payerEmail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET is_paid = TRUE, paid_at = $1, payment_id = $2, payment_status = $3,
			payer_email = $4, updated_at = NOW()
		WHERE id = $5`,
		paidAt, paymentID, models.PaymentStatusPaid, payerEmail, id)
	if err != nil {
		return err
	}
	return requireRow(res, "order", id)
}

// SetOrderDelivered records the delivery on an order
func (s *Store) SetOrderDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET is_delivered = TRUE, delivered_at = $1, updated_at = NOW()
		WHERE id = $2`,
		deliveredAt, id)
	if err != nil {
		return err
	}
	return requireRow(res, "order", id)
}

// DeleteOrder hard-deletes an order and its items (FK cascade).
// Reserved stock is intentionally not restored.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, "order", id)
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.NewNotFoundError(kind, id)
	}
	return nil
}
