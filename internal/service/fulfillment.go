package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"agent-market/internal/broker"
	"agent-market/internal/models"
	"agent-market/internal/payments"
	"agent-market/internal/redisclient"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fulfillment outcomes. Partial means the session reconciled but some agent
// ids in the metadata were no longer in the catalog and were skipped.
const (
	FulfillmentFulfilled        = "fulfilled"
	FulfillmentPartial          = "partial"
	FulfillmentAlreadyFulfilled = "already_fulfilled"
)

// FulfillmentResult reports exactly what a reconciliation did, so callers
// can distinguish a full grant from a partial one or a repeat delivery.
type FulfillmentResult struct {
	Status          string         `json:"status"`
	SessionID       string         `json:"session_id"`
	UserID          int64          `json:"user_id"`
	GrantedAgentIDs []int64        `json:"granted_agent_ids,omitempty"`
	SkippedAgentIDs []int64        `json:"skipped_agent_ids,omitempty"`
	Orders          []models.Order `json:"orders,omitempty"`
	TokensCredited  int64          `json:"tokens_credited,omitempty"`
}

// Reconciler turns a completed checkout session into ownership grants and
// order records. Reconciling the same session twice is a no-op after the
// first success.
type Reconciler struct {
	store          *store.Store
	provider       payments.Provider
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewReconciler creates a new fulfillment reconciler
func NewReconciler(
	store *store.Store,
	provider payments.Provider,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *Reconciler {
	return &Reconciler{
		store:          store,
		provider:       provider,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// Reconcile fetches the authoritative session record, decodes the buyer and
// agent ids from its metadata, and grants ownership plus one completed order
// per agent inside a single transaction keyed by the session id.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (*FulfillmentResult, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.Reconcile")
	defer span.End()

	start := time.Now()
	defer func() {
		util.FulfillmentLatency.Observe(time.Since(start).Seconds())
	}()

	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrValidation)
	}

	if r.redis != nil {
		ok, err := r.redis.AcquireSessionLock(ctx, sessionID, 30*time.Second)
		if err != nil {
			// The database idempotency record still protects us.
			r.logger.Warn("Session lock unavailable, continuing",
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else if !ok {
			return nil, fmt.Errorf("%w: session %s is being reconciled", ErrConflict, sessionID)
		} else {
			defer func() {
				if err := r.redis.ReleaseSessionLock(context.Background(), sessionID); err != nil {
					r.logger.Warn("Failed to release session lock", zap.Error(err))
				}
			}()
		}
	}

	sess, err := r.provider.GetSession(ctx, sessionID)
	if err != nil {
		util.FulfillmentsTotal.WithLabelValues("provider_error").Inc()
		return nil, err
	}

	if sess.PaymentStatus != "" && sess.PaymentStatus != "paid" {
		util.FulfillmentsTotal.WithLabelValues("unpaid").Inc()
		return nil, fmt.Errorf("%w: session %s is not paid (status %s)", ErrValidation, sessionID, sess.PaymentStatus)
	}

	userID, err := strconv.ParseInt(sess.Metadata[payments.MetaUserID], 10, 64)
	if err != nil {
		util.FulfillmentsTotal.WithLabelValues("bad_metadata").Inc()
		return nil, fmt.Errorf("%w: session metadata has no buyer id", ErrValidation)
	}

	// Missing buyer is an explicit failure, never a silent no-op.
	buyer, err := r.store.GetUserByID(ctx, userID)
	if err != nil {
		util.FulfillmentsTotal.WithLabelValues("missing_buyer").Inc()
		return nil, err
	}

	if sess.Metadata[payments.MetaKind] == models.OrderKindTokenPurchase {
		return r.reconcileTokenPurchase(ctx, sess, buyer)
	}

	requested, err := parseIDs(sess.Metadata[payments.MetaAgentIDs])
	if err != nil {
		util.FulfillmentsTotal.WithLabelValues("bad_metadata").Inc()
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(requested) == 0 {
		util.FulfillmentsTotal.WithLabelValues("bad_metadata").Inc()
		return nil, fmt.Errorf("%w: session metadata has no agent ids", ErrValidation)
	}

	agents, err := r.store.GetAgentsByIDs(ctx, requested)
	if err != nil {
		return nil, err
	}

	found := make(map[int64]*models.Agent, len(agents))
	for i := range agents {
		found[agents[i].ID] = &agents[i]
	}

	granted := make([]int64, 0, len(requested))
	skipped := make([]int64, 0)
	orders := make([]models.Order, 0, len(found))
	txnBase := sess.PaymentIntentID
	if txnBase == "" {
		txnBase = sess.ID
	}

	for _, id := range requested {
		agent, ok := found[id]
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		granted = append(granted, id)

		agentID := agent.ID
		orders = append(orders, models.Order{
			UserID:  buyer.ID,
			AgentID: &agentID,
			Status:  models.OrderStatusCompleted,
			Kind:    models.OrderKindOneTime,
			// Current catalog price, which can differ from the price at
			// session-creation time.
			Amount:        agent.Price,
			TransactionID: fmt.Sprintf("%s-%d", txnBase, agentID),
		})
	}

	already, err := r.store.FulfillSessionTx(ctx, sess.ID, buyer.ID, granted, orders)
	if err != nil {
		util.FulfillmentsTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("could not process successful payment: %w", err)
	}
	if already {
		util.FulfillmentsTotal.WithLabelValues("already_fulfilled").Inc()
		r.logger.Info("Session already reconciled",
			zap.String("session_id", sess.ID),
			zap.Int64("user_id", buyer.ID))
		return &FulfillmentResult{
			Status:    FulfillmentAlreadyFulfilled,
			SessionID: sess.ID,
			UserID:    buyer.ID,
		}, nil
	}

	util.OwnershipGrantsTotal.Add(float64(len(granted)))
	util.OrdersRecordedTotal.Add(float64(len(orders)))
	util.AgentsSkippedTotal.Add(float64(len(skipped)))

	status := FulfillmentFulfilled
	if len(skipped) > 0 {
		status = FulfillmentPartial
		r.logger.Warn("Session reconciled with skipped agents",
			zap.String("session_id", sess.ID),
			zap.Int64s("skipped", skipped))
	}
	util.FulfillmentsTotal.WithLabelValues(status).Inc()

	r.publishFulfillmentEvents(ctx, sess.ID, buyer.ID, granted, orders)

	r.logger.Info("Session reconciled",
		zap.String("session_id", sess.ID),
		zap.Int64("user_id", buyer.ID),
		zap.Int("orders", len(orders)))

	return &FulfillmentResult{
		Status:          status,
		SessionID:       sess.ID,
		UserID:          buyer.ID,
		GrantedAgentIDs: granted,
		SkippedAgentIDs: skipped,
		Orders:          orders,
	}, nil
}

func (r *Reconciler) reconcileTokenPurchase(ctx context.Context, sess *payments.Session, buyer *models.User) (*FulfillmentResult, error) {
	tokens, err := strconv.ParseInt(sess.Metadata[payments.MetaTokens], 10, 64)
	if err != nil || tokens <= 0 {
		util.FulfillmentsTotal.WithLabelValues("bad_metadata").Inc()
		return nil, fmt.Errorf("%w: session metadata has no token count", ErrValidation)
	}

	txnID := sess.PaymentIntentID
	if txnID == "" {
		txnID = sess.ID
	}

	order := models.Order{
		UserID:        buyer.ID,
		Status:        models.OrderStatusCompleted,
		Kind:          models.OrderKindTokenPurchase,
		Amount:        sess.AmountTotal,
		TransactionID: txnID,
	}

	already, err := r.store.FulfillTokenPurchaseTx(ctx, sess.ID, buyer.ID, tokens, &order)
	if err != nil {
		util.FulfillmentsTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("could not process successful payment: %w", err)
	}
	if already {
		util.FulfillmentsTotal.WithLabelValues("already_fulfilled").Inc()
		return &FulfillmentResult{
			Status:    FulfillmentAlreadyFulfilled,
			SessionID: sess.ID,
			UserID:    buyer.ID,
		}, nil
	}

	util.TokensCreditedTotal.Add(float64(tokens))
	util.OrdersRecordedTotal.Inc()
	util.FulfillmentsTotal.WithLabelValues(FulfillmentFulfilled).Inc()

	r.publishFulfillmentEvents(ctx, sess.ID, buyer.ID, nil, []models.Order{order})

	return &FulfillmentResult{
		Status:         FulfillmentFulfilled,
		SessionID:      sess.ID,
		UserID:         buyer.ID,
		Orders:         []models.Order{order},
		TokensCredited: tokens,
	}, nil
}

// publishFulfillmentEvents emits domain events after commit, best effort.
func (r *Reconciler) publishFulfillmentEvents(ctx context.Context, sessionID string, userID int64, agentIDs []int64, orders []models.Order) {
	if r.eventPublisher == nil {
		return
	}

	if len(agentIDs) > 0 {
		event := &models.OwnershipGrantedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOwnershipGranted,
				Timestamp: time.Now(),
			},
			SessionID: sessionID,
			UserID:    userID,
			AgentIDs:  agentIDs,
		}
		if err := r.eventPublisher.PublishOwnershipGranted(ctx, event); err != nil {
			r.logger.Error("Failed to publish OwnershipGranted event", zap.Error(err))
		}
	}

	for _, order := range orders {
		event := &models.OrderRecordedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderRecorded,
				Timestamp: time.Now(),
			},
			OrderID:       order.ID,
			UserID:        order.UserID,
			AgentID:       order.AgentID,
			Amount:        order.Amount,
			TransactionID: order.TransactionID,
		}
		if err := r.eventPublisher.PublishOrderRecorded(ctx, event); err != nil {
			r.logger.Error("Failed to publish OrderRecorded event", zap.Error(err))
		}
	}
}
