package store

import (
	"context"
	"database/sql"
	"fmt"

	"agent-market/internal/models"
)

// ReviewFilter holds list filters for reviews.
type ReviewFilter struct {
	AgentID int64
	UserID  int64
	PageParams
}

// CreateReview inserts a new review
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (agent_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, review, query,
		review.AgentID, review.UserID, review.Rating, review.Comment)
}

// GetReviewByID retrieves a review by ID
func (s *Store) GetReviewByID(ctx context.Context, id int64) (*models.Review, error) {
	var review models.Review
	err := s.db.GetContext(ctx, &review, "SELECT * FROM reviews WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListReviews retrieves reviews matching the filter with offset pagination.
func (s *Store) ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, int64, error) {
	p := f.Normalize()

	where := " WHERE 1=1"
	args := []interface{}{}
	n := 0
	if f.AgentID != 0 {
		n++
		where += fmt.Sprintf(" AND agent_id = $%d", n)
		args = append(args, f.AgentID)
	}
	if f.UserID != 0 {
		n++
		where += fmt.Sprintf(" AND user_id = $%d", n)
		args = append(args, f.UserID)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reviews"+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT * FROM reviews%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", where, n+1, n+2)
	args = append(args, p.Limit, p.Offset())

	var reviews []models.Review
	if err := s.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// GetAgentRating returns the average rating and review count for an agent.
func (s *Store) GetAgentRating(ctx context.Context, agentID int64) (float64, int64, error) {
	var row struct {
		Avg   float64 `db:"avg"`
		Count int64   `db:"count"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count FROM reviews WHERE agent_id = $1", agentID)
	if err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}

// UpdateReview updates rating and comment
func (s *Store) UpdateReview(ctx context.Context, review *models.Review) error {
	query := `
		UPDATE reviews
		SET rating = $1, comment = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &review.UpdatedAt, query,
		review.Rating, review.Comment, review.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("review %d: %w", review.ID, ErrNotFound)
	}
	return err
}

// DeleteReview removes a review
func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	return nil
}
