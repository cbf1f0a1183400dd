package store

import (
	"context"
	"database/sql"
	"fmt"

	"agent-market/internal/models"

	"github.com/jmoiron/sqlx"
)

// AgentFilter holds list filters for the agent catalog.
type AgentFilter struct {
	Category  string
	Name      string
	CreatorID int64
	PageParams
}

// CreateAgent inserts a new agent listing
func (s *Store) CreateAgent(ctx context.Context, agent *models.Agent) error {
	query := `
		INSERT INTO agents (name, description, category, price, recurring_price, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, agent, query,
		agent.Name, agent.Description, agent.Category, agent.Price, agent.RecurringPrice, agent.CreatorID)
	if isUniqueViolation(err) {
		return fmt.Errorf("agent %q: %w", agent.Name, ErrDuplicate)
	}
	return err
}

// GetAgentByID retrieves an agent by ID
func (s *Store) GetAgentByID(ctx context.Context, id int64) (*models.Agent, error) {
	var agent models.Agent
	err := s.db.GetContext(ctx, &agent, "SELECT * FROM agents WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// GetAgentsByIDs retrieves multiple agents by IDs. Missing ids are simply
// absent from the result; callers decide how to treat them.
func (s *Store) GetAgentsByIDs(ctx context.Context, ids []int64) ([]models.Agent, error) {
	if len(ids) == 0 {
		return []models.Agent{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM agents WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var agents []models.Agent
	err = s.db.SelectContext(ctx, &agents, query, args...)
	return agents, err
}

// ListAgents retrieves agents matching the filter with offset pagination.
// Returns the page of rows and the total count matching the filter.
func (s *Store) ListAgents(ctx context.Context, f AgentFilter) ([]models.Agent, int64, error) {
	p := f.Normalize()

	where := " WHERE 1=1"
	args := []interface{}{}
	n := 0
	if f.Category != "" {
		n++
		where += fmt.Sprintf(" AND category = $%d", n)
		args = append(args, f.Category)
	}
	if f.Name != "" {
		n++
		where += fmt.Sprintf(" AND name ILIKE $%d", n)
		args = append(args, "%"+f.Name+"%")
	}
	if f.CreatorID != 0 {
		n++
		where += fmt.Sprintf(" AND creator_id = $%d", n)
		args = append(args, f.CreatorID)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM agents"+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT * FROM agents%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", where, n+1, n+2)
	args = append(args, p.Limit, p.Offset())

	var agents []models.Agent
	if err := s.db.SelectContext(ctx, &agents, query, args...); err != nil {
		return nil, 0, err
	}
	return agents, total, nil
}

// UpdateAgent updates mutable agent fields
func (s *Store) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	query := `
		UPDATE agents
		SET name = $1, description = $2, category = $3, price = $4, recurring_price = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &agent.UpdatedAt, query,
		agent.Name, agent.Description, agent.Category, agent.Price, agent.RecurringPrice, agent.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("agent %d: %w", agent.ID, ErrNotFound)
	}
	return err
}

// DeleteAgent removes an agent listing
func (s *Store) DeleteAgent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM agents WHERE id = $1", id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetOwnedAgentIDs returns the ids in a user's ownership set.
func (s *Store) GetOwnedAgentIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		"SELECT agent_id FROM user_agents WHERE user_id = $1 ORDER BY agent_id", userID)
	return ids, err
}

// OwnsAgent reports whether the user already owns the agent.
func (s *Store) OwnsAgent(ctx context.Context, userID, agentID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM user_agents WHERE user_id = $1 AND agent_id = $2)", userID, agentID)
	return exists, err
}
