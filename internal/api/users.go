package api

import (
	"net/http"

	"agent-market/internal/service"
	"agent-market/internal/store"

	"github.com/gin-gonic/gin"
)

// register handles account creation
func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// login handles credential verification and token issuance
func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listUsers handles account listing (admin)
func (h *Handler) listUsers(c *gin.Context) {
	filter := store.UserFilter{
		Role:        c.Query("role"),
		EmailPrefix: c.Query("email"),
		PageParams:  pageParams(c),
	}

	users, total, err := h.users.ListUsers(c.Request.Context(), actorRole(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": users,
		"meta": newListMeta(filter.PageParams, total),
	})
}

// getUser handles get account by ID
func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), actorID(c), actorRole(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// getOwnedAgents handles reading an account's agent library
func (h *Handler) getOwnedAgents(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	agents, err := h.users.GetOwnedAgents(c.Request.Context(), actorID(c), actorRole(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": agents})
}

// updateUser handles profile updates (holder or admin)
func (h *Handler) updateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), actorID(c), actorRole(c), id, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// deleteUser handles account deletion (holder or admin)
func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), actorID(c), actorRole(c), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
