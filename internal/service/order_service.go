package service

import (
	"context"
	"errors"
	"time"

	"fulfillment-service/internal/errs"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is the persistence the workflow engine runs against.
// CreateOrder must persist the order, its items and every stock
// reservation as one atomic unit.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	SetOrderPaid(ctx context.Context, id string, paidAt time.Time, paymentID, payerEmail string) error
	SetOrderDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	DeleteOrder(ctx context.Context, id string) error
}

// OrderCache fronts order detail reads. A nil order with nil error is a miss.
type OrderCache interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	SetOrder(ctx context.Context, order *models.Order) error
	InvalidateOrder(ctx context.Context, id string) error
}

// EventPublisher emits order lifecycle events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
	PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error
	PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error
}

// OrderService orchestrates order creation and the payment and delivery
// transitions
type OrderService struct {
	store  OrderStore
	cache  OrderCache
	events EventPublisher
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, cache OrderCache, events EventPublisher) *OrderService {
	return &OrderService{
		store:  store,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// CartItem is one cart line submitted at checkout. Display fields are
// captured into the order snapshot as given, not re-read from the catalog.
type CartItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Name      string `json:"name"`
	Quantity  int    `json:"qty" binding:"required,min=1"`
	UnitPrice int64  `json:"price" binding:"min=0"`
	Image     string `json:"image"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CartItems       []CartItem             `json:"cart_items" binding:"required,min=1,dive"`
	ShippingAddress models.ShippingAddress `json:"shipping_address" binding:"required"`
	PaymentMethod   string                 `json:"payment_method" binding:"required"`
	ItemsPrice      int64                  `json:"items_price"`
	ShippingPrice   int64                  `json:"shipping_price"`
	TotalPrice      int64                  `json:"total_price"`
}

// CreateOrder validates the cart, snapshots the line items, and persists
// the order together with every inventory reservation in one transaction.
// Either the order and all N decrements commit, or none of them do.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderCreateLatency.Observe(time.Since(start).Seconds())
	}()

	if len(req.CartItems) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, errs.NewValidationError("no order items")
	}

	taxPrice := int64(0)
	totalPrice := req.TotalPrice
	if totalPrice == 0 {
		totalPrice = req.ItemsPrice + req.ShippingPrice + taxPrice
	}

	items := make([]models.OrderItem, 0, len(req.CartItems))
	for _, ci := range req.CartItems {
		items = append(items, models.OrderItem{
			ProductID: ci.ProductID,
			Name:      ci.Name,
			Quantity:  ci.Quantity,
			UnitPrice: ci.UnitPrice,
			Image:     ci.Image,
		})
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      req.ItemsPrice,
		ShippingPrice:   req.ShippingPrice,
		TaxPrice:        taxPrice,
		TotalPrice:      totalPrice,
		Items:           items,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues(createFailureReason(err)).Inc()
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int("items", len(order.Items)))

	s.publishOrderCreated(ctx, order)

	return order, nil
}

func createFailureReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, errs.ErrNotFound):
		return "product_not_found"
	default:
		return "db_error"
	}
}

// PaymentInfo is the payment confirmation supplied by the gateway callback
type PaymentInfo struct {
	PaidAt     *time.Time `json:"paid_at"`
	PaymentID  string     `json:"payment_id" binding:"required"`
	PayerEmail string     `json:"payer_email"`
	Status     string     `json:"status"`
}

// MarkPaid records the payment result, then derives the delivery date
// from the just-persisted paid_at (one calendar day later). The delivery
// write happens strictly after the payment save so the derived date never
// depends on caller input. Re-paying an already-paid order overwrites
// paid_at and delivered_at; there is no double-payment guard.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string, info PaymentInfo) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkPaid")
	defer span.End()

	if info.Status != "" && info.Status != "success" {
		return nil, errs.NewPaymentRejectedError(info.Status)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	paidAt := time.Now().UTC()
	if info.PaidAt != nil {
		paidAt = *info.PaidAt
	}

	if err := s.store.SetOrderPaid(ctx, orderID, paidAt, info.PaymentID, info.PayerEmail); err != nil {
		return nil, err
	}

	// A crash between these two saves leaves the order paid but not
	// delivered; delivered_at is recomputable from paid_at.
	deliveredAt := paidAt.AddDate(0, 0, 1)
	if err := s.store.SetOrderDelivered(ctx, orderID, deliveredAt); err != nil {
		return nil, err
	}

	s.invalidate(ctx, orderID)

	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentID = info.PaymentID
	order.PaymentStatus = models.PaymentStatusPaid
	order.PayerEmail = info.PayerEmail
	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt

	util.OrdersPaidTotal.Inc()
	s.logger.Info("Order paid",
		zap.String("order_id", orderID),
		zap.Time("paid_at", paidAt),
		zap.Time("delivered_at", deliveredAt))

	s.publishOrderPaid(ctx, order)

	return order, nil
}

// MarkDelivered sets the delivery status directly. It does not depend on
// payment status: an unpaid order can be marked delivered.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID string, at *time.Time) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkDelivered")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	deliveredAt := time.Now().UTC()
	if at != nil {
		deliveredAt = *at
	}

	if err := s.store.SetOrderDelivered(ctx, orderID, deliveredAt); err != nil {
		return nil, err
	}

	s.invalidate(ctx, orderID)

	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt

	util.OrdersDeliveredTotal.Inc()
	s.logger.Info("Order delivered",
		zap.String("order_id", orderID),
		zap.Time("delivered_at", deliveredAt))

	s.publishOrderDelivered(ctx, order)

	return order, nil
}

// GetOrder retrieves an order with items and owner display fields,
// serving from the cache when possible
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	cached, err := s.cache.GetOrder(ctx, orderID)
	if err != nil {
		s.logger.Warn("Order cache read failed", zap.String("order_id", orderID), zap.Error(err))
	}
	if cached != nil {
		util.OrderCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	util.OrderCacheHits.WithLabelValues("miss").Inc()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetOrder(ctx, order); err != nil {
		s.logger.Warn("Order cache write failed", zap.String("order_id", orderID), zap.Error(err))
	}

	return order, nil
}

// ListOrders returns every order with owner names resolved
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrders(ctx)
}

// ListMyOrders returns the caller's own orders
func (s *OrderService) ListMyOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// DeleteOrder hard-deletes an order. Stock reserved by the order is not
// restored.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		return err
	}

	s.invalidate(ctx, orderID)
	util.OrdersDeletedTotal.Inc()
	s.logger.Info("Order deleted", zap.String("order_id", orderID))

	event := &models.OrderDeletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderDeleted),
		OrderID:   orderID,
	}
	if err := s.events.PublishOrderDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDeleted event", zap.Error(err))
	}

	return nil
}

func (s *OrderService) invalidate(ctx context.Context, orderID string) {
	if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
		s.logger.Warn("Order cache invalidation failed",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *models.Order) {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, models.OrderItemData{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	event := &models.OrderCreatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderCreated),
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		Items:      items,
	}
	if err := s.events.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

func (s *OrderService) publishOrderPaid(ctx context.Context, order *models.Order) {
	event := &models.OrderPaidEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderPaid),
		OrderID:     order.ID,
		PaymentID:   order.PaymentID,
		PayerEmail:  order.PayerEmail,
		PaidAt:      *order.PaidAt,
		DeliveredAt: *order.DeliveredAt,
	}
	if err := s.events.PublishOrderPaid(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}
}

func (s *OrderService) publishOrderDelivered(ctx context.Context, order *models.Order) {
	event := &models.OrderDeliveredEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderDelivered),
		OrderID:     order.ID,
		DeliveredAt: *order.DeliveredAt,
	}
	if err := s.events.PublishOrderDelivered(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDelivered event", zap.Error(err))
	}
}
