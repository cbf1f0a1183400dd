package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"agent-market/internal/models"
	"agent-market/internal/payments"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"go.uber.org/zap"
)

// CheckoutService brokers hosted checkout sessions for agent purchases and
// token packs.
type CheckoutService struct {
	store    *store.Store
	provider payments.Provider
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store *store.Store, provider payments.Provider) *CheckoutService {
	return &CheckoutService{
		store:    store,
		provider: provider,
		logger:   util.GetLogger(),
	}
}

// CheckoutSessionResponse is returned to the client for redirect.
type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Amount    int64  `json:"amount"`
}

// CreateAgentSession creates a checkout session for a set of agents. The
// buyer id and agent id list travel as opaque session metadata.
func (cs *CheckoutService) CreateAgentSession(ctx context.Context, userID int64, agentIDs []int64) (*CheckoutSessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateAgentSession")
	defer span.End()

	if len(agentIDs) == 0 {
		return nil, fmt.Errorf("%w: no agents selected", ErrValidation)
	}

	if _, err := cs.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	agents, err := cs.store.GetAgentsByIDs(ctx, agentIDs)
	if err != nil {
		return nil, err
	}
	if len(agents) != len(agentIDs) {
		return nil, fmt.Errorf("%w: some agents not found", ErrValidation)
	}

	var amount int64
	items := make([]payments.LineItem, 0, len(agents))
	for _, agent := range agents {
		if agent.Price <= 0 {
			return nil, fmt.Errorf("%w: agent %d has no purchasable price", ErrValidation, agent.ID)
		}
		amount += agent.Price
		items = append(items, payments.LineItem{Name: agent.Name, Amount: agent.Price, Qty: 1})
	}

	sess, err := cs.provider.CreateSession(ctx, &payments.SessionRequest{
		Items: items,
		Metadata: map[string]string{
			payments.MetaUserID:   strconv.FormatInt(userID, 10),
			payments.MetaAgentIDs: joinIDs(agentIDs),
			payments.MetaKind:     models.OrderKindOneTime,
		},
	})
	if err != nil {
		util.CheckoutSessionFailuresTotal.Inc()
		return nil, err
	}

	util.CheckoutSessionsCreatedTotal.Inc()
	cs.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount))

	return &CheckoutSessionResponse{SessionID: sess.ID, URL: sess.URL, Amount: amount}, nil
}

// CreateTokenSession creates a checkout session for a token pack purchase.
func (cs *CheckoutService) CreateTokenSession(ctx context.Context, userID, tokens, amount int64) (*CheckoutSessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateTokenSession")
	defer span.End()

	if tokens <= 0 || amount <= 0 {
		return nil, fmt.Errorf("%w: tokens and amount must be positive", ErrValidation)
	}

	if _, err := cs.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	sess, err := cs.provider.CreateSession(ctx, &payments.SessionRequest{
		Items: []payments.LineItem{
			{Name: fmt.Sprintf("%d token pack", tokens), Amount: amount, Qty: 1},
		},
		Metadata: map[string]string{
			payments.MetaUserID: strconv.FormatInt(userID, 10),
			payments.MetaKind:   models.OrderKindTokenPurchase,
			payments.MetaTokens: strconv.FormatInt(tokens, 10),
		},
	})
	if err != nil {
		util.CheckoutSessionFailuresTotal.Inc()
		return nil, err
	}

	util.CheckoutSessionsCreatedTotal.Inc()
	return &CheckoutSessionResponse{SessionID: sess.ID, URL: sess.URL, Amount: amount}, nil
}

// GetSession reads back a session from the provider.
func (cs *CheckoutService) GetSession(ctx context.Context, sessionID string) (*payments.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrValidation)
	}
	return cs.provider.GetSession(ctx, sessionID)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func parseIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad agent id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
