package api

import (
	"net/http"

	"agent-market/internal/service"
	"agent-market/internal/store"

	"github.com/gin-gonic/gin"
)

// createReview handles review creation
func (h *Handler) createReview(c *gin.Context) {
	var req service.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), actorID(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// listAgentReviews handles listing reviews for one agent
func (h *Handler) listAgentReviews(c *gin.Context) {
	agentID, ok := pathID(c)
	if !ok {
		return
	}

	filter := store.ReviewFilter{
		AgentID:    agentID,
		PageParams: pageParams(c),
	}

	reviews, total, err := h.reviews.ListReviews(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": reviews,
		"meta": newListMeta(filter.PageParams, total),
	})
}

// getAgentRating handles the aggregate rating for one agent
func (h *Handler) getAgentRating(c *gin.Context) {
	agentID, ok := pathID(c)
	if !ok {
		return
	}

	rating, err := h.reviews.GetAgentRating(c.Request.Context(), agentID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rating)
}

// updateReview handles review updates (author only)
func (h *Handler) updateReview(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	review, err := h.reviews.UpdateReview(c.Request.Context(), actorID(c), id, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// deleteReview handles review deletion (author or admin)
func (h *Handler) deleteReview(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.reviews.DeleteReview(c.Request.Context(), actorID(c), actorRole(c), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
