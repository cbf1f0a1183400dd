package service

import (
	"context"
	"fmt"
	"time"

	"agent-market/internal/models"
	"agent-market/internal/redisclient"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"go.uber.org/zap"
)

const agentCacheTTL = 5 * time.Minute

// AgentService handles catalog business logic
type AgentService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewAgentService creates a new agent service
func NewAgentService(store *store.Store, redis *redisclient.Client) *AgentService {
	return &AgentService{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// CreateAgentRequest represents a request to list a new agent
type CreateAgentRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	Category       string `json:"category" binding:"required"`
	Price          int64  `json:"price" binding:"required"`
	RecurringPrice *int64 `json:"recurring_price,omitempty"`
}

// UpdateAgentRequest represents mutable agent fields
type UpdateAgentRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Price          *int64 `json:"price,omitempty"`
	RecurringPrice *int64 `json:"recurring_price,omitempty"`
}

// CreateAgent lists a new agent. The creator must resolve to an existing
// account.
func (as *AgentService) CreateAgent(ctx context.Context, creatorID int64, req *CreateAgentRequest) (*models.Agent, error) {
	ctx, span := util.StartSpan(ctx, "AgentService.CreateAgent")
	defer span.End()

	if req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if req.RecurringPrice != nil && *req.RecurringPrice <= 0 {
		return nil, fmt.Errorf("%w: recurring price must be positive", ErrValidation)
	}

	if _, err := as.store.GetUserByID(ctx, creatorID); err != nil {
		return nil, err
	}

	agent := &models.Agent{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		Price:          req.Price,
		RecurringPrice: req.RecurringPrice,
		CreatorID:      creatorID,
	}

	if err := as.store.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}

	as.logger.Info("Agent listed",
		zap.Int64("agent_id", agent.ID),
		zap.Int64("creator_id", creatorID))
	return agent, nil
}

// GetAgent retrieves an agent, serving from cache when possible.
func (as *AgentService) GetAgent(ctx context.Context, id int64) (*models.Agent, error) {
	if as.redis != nil {
		cached, err := as.redis.GetAgent(ctx, id)
		if err != nil {
			as.logger.Warn("Agent cache read failed", zap.Int64("agent_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	agent, err := as.store.GetAgentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if as.redis != nil {
		if err := as.redis.SetAgent(ctx, agent, agentCacheTTL); err != nil {
			as.logger.Warn("Agent cache write failed", zap.Int64("agent_id", id), zap.Error(err))
		}
	}
	return agent, nil
}

// ListAgents retrieves a filtered, paginated catalog page.
func (as *AgentService) ListAgents(ctx context.Context, f store.AgentFilter) ([]models.Agent, int64, error) {
	return as.store.ListAgents(ctx, f)
}

// UpdateAgent mutates an agent. Only the creator may update, regardless of
// role or payload validity.
func (as *AgentService) UpdateAgent(ctx context.Context, actorID int64, agentID int64, req *UpdateAgentRequest) (*models.Agent, error) {
	ctx, span := util.StartSpan(ctx, "AgentService.UpdateAgent")
	defer span.End()

	agent, err := as.store.GetAgentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.CreatorID != actorID {
		return nil, fmt.Errorf("%w: only the creator may update agent %d", ErrPermission, agentID)
	}

	if req.Name != "" {
		agent.Name = req.Name
	}
	if req.Description != "" {
		agent.Description = req.Description
	}
	if req.Category != "" {
		agent.Category = req.Category
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
		}
		agent.Price = *req.Price
	}
	if req.RecurringPrice != nil {
		if *req.RecurringPrice <= 0 {
			return nil, fmt.Errorf("%w: recurring price must be positive", ErrValidation)
		}
		agent.RecurringPrice = req.RecurringPrice
	}

	if err := as.store.UpdateAgent(ctx, agent); err != nil {
		return nil, err
	}
	as.invalidateCache(ctx, agentID)
	return agent, nil
}

// DeleteAgent removes a listing. Creator or admin only.
func (as *AgentService) DeleteAgent(ctx context.Context, actorID int64, actorRole string, agentID int64) error {
	ctx, span := util.StartSpan(ctx, "AgentService.DeleteAgent")
	defer span.End()

	agent, err := as.store.GetAgentByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.CreatorID != actorID && actorRole != models.RoleAdmin {
		return fmt.Errorf("%w: only the creator or an admin may delete agent %d", ErrPermission, agentID)
	}

	if err := as.store.DeleteAgent(ctx, agentID); err != nil {
		return err
	}
	as.invalidateCache(ctx, agentID)

	as.logger.Info("Agent delisted",
		zap.Int64("agent_id", agentID),
		zap.Int64("actor_id", actorID))
	return nil
}

func (as *AgentService) invalidateCache(ctx context.Context, agentID int64) {
	if as.redis == nil {
		return
	}
	if err := as.redis.InvalidateAgent(ctx, agentID); err != nil {
		as.logger.Warn("Agent cache invalidation failed", zap.Int64("agent_id", agentID), zap.Error(err))
	}
}
