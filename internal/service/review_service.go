package service

import (
	"context"
	"fmt"

	"agent-market/internal/models"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"go.uber.org/zap"
)

// ReviewService handles agent reviews
type ReviewService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store *store.Store) *ReviewService {
	return &ReviewService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateReviewRequest represents a request to review an agent
type CreateReviewRequest struct {
	AgentID int64  `json:"agent_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// UpdateReviewRequest represents mutable review fields
type UpdateReviewRequest struct {
	Rating  *int   `json:"rating,omitempty"`
	Comment string `json:"comment"`
}

// AgentRating aggregates reviews for one agent.
type AgentRating struct {
	AgentID int64   `json:"agent_id"`
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// CreateReview records a review. Agent and author must both exist. An author
// may leave more than one review per agent.
func (rs *ReviewService) CreateReview(ctx context.Context, authorID int64, req *CreateReviewRequest) (*models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.CreateReview")
	defer span.End()

	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	if _, err := rs.store.GetAgentByID(ctx, req.AgentID); err != nil {
		return nil, err
	}
	if _, err := rs.store.GetUserByID(ctx, authorID); err != nil {
		return nil, err
	}

	review := &models.Review{
		AgentID: req.AgentID,
		UserID:  authorID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	if err := rs.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	rs.logger.Info("Review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("agent_id", req.AgentID))
	return review, nil
}

// GetReview retrieves a review by id.
func (rs *ReviewService) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	return rs.store.GetReviewByID(ctx, id)
}

// ListReviews retrieves reviews with filters and pagination.
func (rs *ReviewService) ListReviews(ctx context.Context, f store.ReviewFilter) ([]models.Review, int64, error) {
	return rs.store.ListReviews(ctx, f)
}

// GetAgentRating returns the aggregate rating for an agent.
func (rs *ReviewService) GetAgentRating(ctx context.Context, agentID int64) (*AgentRating, error) {
	if _, err := rs.store.GetAgentByID(ctx, agentID); err != nil {
		return nil, err
	}

	avg, count, err := rs.store.GetAgentRating(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return &AgentRating{AgentID: agentID, Average: avg, Count: count}, nil
}

// UpdateReview mutates a review. Author only.
func (rs *ReviewService) UpdateReview(ctx context.Context, actorID int64, reviewID int64, req *UpdateReviewRequest) (*models.Review, error) {
	review, err := rs.store.GetReviewByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != actorID {
		return nil, fmt.Errorf("%w: only the author may update review %d", ErrPermission, reviewID)
	}

	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
		}
		review.Rating = *req.Rating
	}
	if req.Comment != "" {
		review.Comment = req.Comment
	}

	if err := rs.store.UpdateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReview removes a review. Author or admin.
func (rs *ReviewService) DeleteReview(ctx context.Context, actorID int64, actorRole string, reviewID int64) error {
	review, err := rs.store.GetReviewByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != actorID && actorRole != models.RoleAdmin {
		return fmt.Errorf("%w: only the author or an admin may delete review %d", ErrPermission, reviewID)
	}
	return rs.store.DeleteReview(ctx, reviewID)
}
