package store

import (
	"context"
	"fmt"

	"agent-market/internal/models"
)

// IsSessionFulfilled checks whether a checkout session has already been
// reconciled.
func (s *Store) IsSessionFulfilled(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM fulfilled_sessions WHERE session_id = $1)", sessionID)
	return exists, err
}

// FulfillSessionTx grants ownership and records orders for a completed
// checkout session in one transaction. The fulfilled_sessions insert keyed by
// session id is the idempotency guard: if the session was already reconciled
// nothing is written and already=true is returned. A failure at any step
// rolls back every write, so ownership and orders never diverge.
func (s *Store) FulfillSessionTx(ctx context.Context, sessionID string, userID int64, agentIDs []int64, orders []models.Order) (already bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO fulfilled_sessions (session_id, user_id) VALUES ($1, $2) ON CONFLICT (session_id) DO NOTHING",
		sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to record fulfilled session: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return true, nil
	}

	for _, agentID := range agentIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO user_agents (user_id, agent_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			userID, agentID)
		if err != nil {
			return false, fmt.Errorf("failed to grant ownership of agent %d: %w", agentID, err)
		}
	}

	insert := `
		INSERT INTO orders (user_id, agent_id, status, kind, amount, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	for i := range orders {
		o := &orders[i]
		err := tx.GetContext(ctx, o, insert,
			o.UserID, o.AgentID, o.Status, o.Kind, o.Amount, o.TransactionID)
		if isUniqueViolation(err) {
			return false, fmt.Errorf("transaction id %s: %w", o.TransactionID, ErrDuplicate)
		}
		if err != nil {
			return false, fmt.Errorf("failed to record order: %w", err)
		}
	}

	return false, tx.Commit()
}

// FulfillTokenPurchaseTx credits a token balance and records the purchase
// order in one transaction, idempotent per session id like FulfillSessionTx.
func (s *Store) FulfillTokenPurchaseTx(ctx context.Context, sessionID string, userID, tokens int64, order *models.Order) (already bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO fulfilled_sessions (session_id, user_id) VALUES ($1, $2) ON CONFLICT (session_id) DO NOTHING",
		sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to record fulfilled session: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return true, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET token_balance = token_balance + $1, updated_at = NOW() WHERE id = $2",
		tokens, userID)
	if err != nil {
		return false, fmt.Errorf("failed to credit tokens: %w", err)
	}

	insert := `
		INSERT INTO orders (user_id, agent_id, status, kind, amount, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, insert,
		order.UserID, order.AgentID, order.Status, order.Kind, order.Amount, order.TransactionID)
	if isUniqueViolation(err) {
		return false, fmt.Errorf("transaction id %s: %w", order.TransactionID, ErrDuplicate)
	}
	if err != nil {
		return false, fmt.Errorf("failed to record order: %w", err)
	}

	return false, tx.Commit()
}
