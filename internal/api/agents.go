package api

import (
	"net/http"
	"strconv"

	"agent-market/internal/service"
	"agent-market/internal/store"

	"github.com/gin-gonic/gin"
)

// createAgent handles new agent listings
func (h *Handler) createAgent(c *gin.Context) {
	var req service.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	agent, err := h.agents.CreateAgent(c.Request.Context(), actorID(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, agent)
}

// listAgents handles catalog browsing with filters and pagination
func (h *Handler) listAgents(c *gin.Context) {
	creatorID, _ := strconv.ParseInt(c.Query("creator_id"), 10, 64)
	filter := store.AgentFilter{
		Category:   c.Query("category"),
		Name:       c.Query("name"),
		CreatorID:  creatorID,
		PageParams: pageParams(c),
	}

	agents, total, err := h.agents.ListAgents(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": agents,
		"meta": newListMeta(filter.PageParams, total),
	})
}

// getAgent handles get agent by ID
func (h *Handler) getAgent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	agent, err := h.agents.GetAgent(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, agent)
}

// updateAgent handles agent updates (creator only)
func (h *Handler) updateAgent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	agent, err := h.agents.UpdateAgent(c.Request.Context(), actorID(c), id, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, agent)
}

// deleteAgent handles agent deletion (creator or admin)
func (h *Handler) deleteAgent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.agents.DeleteAgent(c.Request.Context(), actorID(c), actorRole(c), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
