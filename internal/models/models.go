package models

import "time"

// Product represents a catalog product with its available stock
type Product struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Image        string    `db:"image" json:"image"`
	Price        int64     `db:"price" json:"price"`
	CountInStock int       `db:"count_in_stock" json:"count_in_stock"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ShippingAddress is the destination captured on the order. Embedded in
// Order so sqlx scans the ship_* columns directly.
type ShippingAddress struct {
	Address    string `db:"ship_address" json:"address"`
	City       string `db:"ship_city" json:"city"`
	PostalCode string `db:"ship_postal_code" json:"postal_code"`
	Country    string `db:"ship_country" json:"country"`
}

// Order represents a customer order
type Order struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`

	ShippingAddress
	PaymentMethod string `db:"payment_method" json:"payment_method"`

	ItemsPrice    int64 `db:"items_price" json:"items_price"`
	ShippingPrice int64 `db:"shipping_price" json:"shipping_price"`
	TaxPrice      int64 `db:"tax_price" json:"tax_price"`
	TotalPrice    int64 `db:"total_price" json:"total_price"`

	IsPaid        bool       `db:"is_paid" json:"is_paid"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	PaymentID     string     `db:"payment_id" json:"payment_id,omitempty"`
	PaymentStatus string     `db:"payment_status" json:"payment_status,omitempty"`
	PayerEmail    string     `db:"payer_email" json:"payer_email,omitempty"`

	IsDelivered bool       `db:"is_delivered" json:"is_delivered"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Owner display fields come from joining users; only queries that
	// resolve the owner select these columns.
	OwnerName  string      `db:"owner_name" json:"owner_name,omitempty"`
	OwnerEmail string      `db:"owner_email" json:"owner_email,omitempty"`
	Items      []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is an immutable line-item snapshot captured at order time.
// Name, image and unit price are copied from the cart, not dereferenced
// from the catalog later.
type OrderItem struct {
	ID        int64  `db:"id" json:"-"`
	OrderID   string `db:"order_id" json:"-"`
	ProductID string `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Image     string `db:"image" json:"image"`
}

// User is the caller identity resolved by the access gate and joined
// onto orders for owner display
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Payment result statuses
const (
	PaymentStatusPaid = "paid"
)

// ProcessedEvent for the audit worker's idempotency ledger
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
