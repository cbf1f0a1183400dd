package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"agent-market/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type createSessionRequest struct {
	AgentIDs []int64 `json:"agent_ids" binding:"required,min=1"`
}

// createCheckoutSession handles checkout session creation for agents
func (h *Handler) createCheckoutSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.checkout.CreateAgentSession(c.Request.Context(), actorID(c), req.AgentIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

type createTokenSessionRequest struct {
	Tokens int64 `json:"tokens" binding:"required"`
	Amount int64 `json:"amount" binding:"required"`
}

// createTokenSession handles checkout session creation for token packs
func (h *Handler) createTokenSession(c *gin.Context) {
	var req createTokenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.checkout.CreateTokenSession(c.Request.Context(), actorID(c), req.Tokens, req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getCheckoutSession reads a session back from the provider
func (h *Handler) getCheckoutSession(c *gin.Context) {
	sess, err := h.checkout.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

type checkoutSuccessRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// checkoutSuccess invokes the reconciler with the session id returned by the
// provider's redirect. Safe to call more than once.
func (h *Handler) checkoutSuccess(c *gin.Context) {
	var req checkoutSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), req.SessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// stripeWebhook accepts provider callbacks and hands completed sessions to
// the fulfillment worker through the broker. Delivery is at-least-once on
// both sides; the reconciler's idempotency guard absorbs duplicates.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read payload"})
		return
	}

	var event stripe.Event
	if h.webhookSecret != "" {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
	} else if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if event.Type != "checkout.session.completed" {
		c.Status(http.StatusOK)
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session payload"})
		return
	}

	completed := &models.CheckoutCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCheckoutCompleted,
			Timestamp: time.Now(),
		},
		SessionID: sess.ID,
	}

	if err := h.eventPublisher.PublishCheckoutCompleted(c.Request.Context(), completed); err != nil {
		h.logger.Error("Failed to publish CheckoutCompleted event",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		// Non-2xx makes the provider redeliver later.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not enqueue fulfillment"})
		return
	}

	c.Status(http.StatusOK)
}
