package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"fulfillment-service/internal/errs"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders *service.OrderService
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService) *Handler {
	return &Handler{orders: orders}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine, gate *Gate) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	orders := router.Group("/api/v1/orders", gate.RequireAuth())
	{
		orders.POST("", h.createOrder)
		orders.GET("", gate.RequireAdmin(), h.listOrders)
		orders.GET("/my-orders", h.listMyOrders)
		orders.GET("/:id", h.getOrder)
		orders.PUT("/:id/pay", h.payOrder)
		orders.PUT("/:id/deliver", gate.RequireAdmin(), h.deliverOrder)
		orders.DELETE("/:id", gate.RequireAdmin(), h.deleteOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), identity.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// listOrders handles listing all orders (admin)
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// listMyOrders handles listing the caller's orders
func (h *Handler) listMyOrders(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	orders, err := h.orders.ListMyOrders(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// payOrder handles marking an order as paid
func (h *Handler) payOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var info service.PaymentInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid payment payload",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.MarkPaid(c.Request.Context(), orderID, info)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type deliverRequest struct {
	DeliveredAt *time.Time `json:"delivered_at"`
}

// deliverOrder handles marking an order as delivered (admin)
func (h *Handler) deliverOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	// The body is optional: an empty body means "delivered now".
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid delivery payload",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.MarkDelivered(c.Request.Context(), orderID, req.DeliveredAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// deleteOrder handles the administrative hard delete
func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}

func orderIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return "", false
	}
	return id, true
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrPaymentRejected):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrOutOfStock):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
