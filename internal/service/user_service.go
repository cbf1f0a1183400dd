package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agent-market/internal/auth"
	"agent-market/internal/models"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"go.uber.org/zap"
)

// UserService handles account business logic
type UserService struct {
	store  *store.Store
	auth   *auth.Manager
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(store *store.Store, authManager *auth.Manager) *UserService {
	return &UserService{
		store:  store,
		auth:   authManager,
		logger: util.GetLogger(),
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries a signed token and the account it belongs to.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UpdateUserRequest represents mutable profile fields
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// Register creates a new account with a hashed credential.
func (us *UserService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Register")
	defer span.End()

	hash, err := us.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	if err := us.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := us.auth.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	us.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return &AuthResponse{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token. A missing account and a
// wrong password are indistinguishable to the caller.
func (us *UserService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Login")
	defer span.End()

	user, err := us.store.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !us.auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := us.auth.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{Token: token, User: user}, nil
}

// GetUser retrieves an account. Visible to the account holder or an admin.
func (us *UserService) GetUser(ctx context.Context, actorID int64, actorRole string, userID int64) (*models.User, error) {
	if actorID != userID && actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot read another account", ErrPermission)
	}
	return us.store.GetUserByID(ctx, userID)
}

// ListUsers retrieves accounts. Admin only.
func (us *UserService) ListUsers(ctx context.Context, actorRole string, f store.UserFilter) ([]models.User, int64, error) {
	if actorRole != models.RoleAdmin {
		return nil, 0, fmt.Errorf("%w: admin role required", ErrPermission)
	}
	return us.store.ListUsers(ctx, f)
}

// UpdateUser mutates profile fields. The account holder may update their own
// record; an admin may update any record and change roles.
func (us *UserService) UpdateUser(ctx context.Context, actorID int64, actorRole string, userID int64, req *UpdateUserRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.UpdateUser")
	defer span.End()

	if actorID != userID && actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot update another account", ErrPermission)
	}
	if req.Role != "" && actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only an admin may change roles", ErrPermission)
	}
	if req.Role != "" && req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}

	user, err := us.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = strings.ToLower(req.Email)
	}
	if req.Role != "" {
		user.Role = req.Role
	}

	if err := us.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if req.Password != "" {
		hash, err := us.auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		if err := us.store.UpdateUserPassword(ctx, userID, hash); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// DeleteUser removes an account. The holder or an admin may delete it.
func (us *UserService) DeleteUser(ctx context.Context, actorID int64, actorRole string, userID int64) error {
	if actorID != userID && actorRole != models.RoleAdmin {
		return fmt.Errorf("%w: cannot delete another account", ErrPermission)
	}
	return us.store.DeleteUser(ctx, userID)
}

// GetOwnedAgents returns the agents in a user's ownership set.
func (us *UserService) GetOwnedAgents(ctx context.Context, actorID int64, actorRole string, userID int64) ([]models.Agent, error) {
	if actorID != userID && actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot read another account's library", ErrPermission)
	}

	ids, err := us.store.GetOwnedAgentIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return us.store.GetAgentsByIDs(ctx, ids)
}
