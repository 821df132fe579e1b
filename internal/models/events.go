package models

import "time"

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderPaid      = "ORDER_PAID"
	EventTypeOrderDelivered = "ORDER_DELIVERED"
	EventTypeOrderDeleted   = "ORDER_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after order creation commits
type OrderCreatedEvent struct {
	BaseEvent
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	TotalPrice int64           `json:"total_price"`
	Items      []OrderItemData `json:"items"`
}

// OrderPaidEvent published when an order is marked paid
type OrderPaidEvent struct {
	BaseEvent
	OrderID     string    `json:"order_id"`
	PaymentID   string    `json:"payment_id"`
	PayerEmail  string    `json:"payer_email"`
	PaidAt      time.Time `json:"paid_at"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderDeliveredEvent published when an order is marked delivered
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID     string    `json:"order_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderDeletedEvent published after an administrative hard delete
type OrderDeletedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
