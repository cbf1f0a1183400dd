package api

import (
	"net/http"
	"strconv"

	"agent-market/internal/service"
	"agent-market/internal/store"

	"github.com/gin-gonic/gin"
)

// listOrders handles order listing (own orders, or any for admin)
func (h *Handler) listOrders(c *gin.Context) {
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)
	filter := store.OrderFilter{
		UserID:     userID,
		Status:     c.Query("status"),
		Kind:       c.Query("kind"),
		PageParams: pageParams(c),
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), actorID(c), actorRole(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": orders,
		"meta": newListMeta(filter.PageParams, total),
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), actorID(c), actorRole(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus handles order status transitions (admin)
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), actorRole(c), id, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// deleteOrder handles order deletion (admin)
func (h *Handler) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), actorRole(c), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// createPayment handles recording a payment
func (h *Handler) createPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), actorID(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// listPayments handles payment listing (own payments, or any for admin)
func (h *Handler) listPayments(c *gin.Context) {
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)
	orderID, _ := strconv.ParseInt(c.Query("order_id"), 10, 64)
	filter := store.PaymentFilter{
		UserID:     userID,
		OrderID:    orderID,
		Status:     c.Query("status"),
		PageParams: pageParams(c),
	}

	payments, total, err := h.payments.ListPayments(c.Request.Context(), actorID(c), actorRole(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": payments,
		"meta": newListMeta(filter.PageParams, total),
	})
}

// getPayment handles get payment by ID
func (h *Handler) getPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), actorID(c), actorRole(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

type updatePaymentStatusRequest struct {
	Status        string `json:"status" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

// updatePaymentStatus handles the single pending-to-terminal transition (admin)
func (h *Handler) updatePaymentStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	payment, err := h.payments.UpdatePaymentStatus(c.Request.Context(), actorRole(c), id, req.Status, req.TransactionID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}
