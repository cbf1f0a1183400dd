package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"agent-market/internal/auth"
	"agent-market/internal/broker"
	"agent-market/internal/service"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	agents         *service.AgentService
	users          *service.UserService
	orders         *service.OrderService
	payments       *service.PaymentService
	reviews        *service.ReviewService
	checkout       *service.CheckoutService
	reconciler     *service.Reconciler
	authManager    *auth.Manager
	eventPublisher *broker.EventPublisher
	webhookSecret  string
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	agents *service.AgentService,
	users *service.UserService,
	orders *service.OrderService,
	payments *service.PaymentService,
	reviews *service.ReviewService,
	checkout *service.CheckoutService,
	reconciler *service.Reconciler,
	authManager *auth.Manager,
	eventPublisher *broker.EventPublisher,
	webhookSecret string,
) *Handler {
	return &Handler{
		agents:         agents,
		users:          users,
		orders:         orders,
		payments:       payments,
		reviews:        reviews,
		checkout:       checkout,
		reconciler:     reconciler,
		authManager:    authManager,
		eventPublisher: eventPublisher,
		webhookSecret:  webhookSecret,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)

		v1.GET("/agents", h.listAgents)
		v1.GET("/agents/:id", h.getAgent)
		v1.GET("/agents/:id/reviews", h.listAgentReviews)
		v1.GET("/agents/:id/rating", h.getAgentRating)

		v1.POST("/webhooks/stripe", h.stripeWebhook)
	}

	authed := v1.Group("", h.authRequired())
	{
		authed.POST("/agents", h.createAgent)
		authed.PUT("/agents/:id", h.updateAgent)
		authed.DELETE("/agents/:id", h.deleteAgent)

		authed.GET("/users", h.listUsers)
		authed.GET("/users/:id", h.getUser)
		authed.GET("/users/:id/agents", h.getOwnedAgents)
		authed.PUT("/users/:id", h.updateUser)
		authed.DELETE("/users/:id", h.deleteUser)

		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.PATCH("/orders/:id/status", h.updateOrderStatus)
		authed.DELETE("/orders/:id", h.deleteOrder)

		authed.POST("/payments", h.createPayment)
		authed.GET("/payments", h.listPayments)
		authed.GET("/payments/:id", h.getPayment)
		authed.PATCH("/payments/:id/status", h.updatePaymentStatus)

		authed.POST("/reviews", h.createReview)
		authed.PUT("/reviews/:id", h.updateReview)
		authed.DELETE("/reviews/:id", h.deleteReview)

		authed.POST("/checkout/session", h.createCheckoutSession)
		authed.POST("/checkout/tokens", h.createTokenSession)
		authed.GET("/checkout/session/:id", h.getCheckoutSession)
		authed.POST("/checkout/success", h.checkoutSuccess)
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

// writeError maps the fault taxonomy to HTTP statuses. Unexpected store and
// provider causes are logged but not echoed to the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// listMeta is the pagination envelope for list endpoints.
type listMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func newListMeta(p store.PageParams, total int64) listMeta {
	p = p.Normalize()
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return listMeta{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

func pageParams(c *gin.Context) store.PageParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return store.PageParams{Page: page, Limit: limit}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
