package service

import (
	"context"
	"testing"
	"time"

	"agent-market/internal/auth"
	"agent-market/internal/models"
	"agent-market/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthManager(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager("test-secret", time.Hour, 4)
	require.NoError(t, err)
	return m
}

func TestLoginWrongPassword(t *testing.T) {
	s, mock := newMockStore(t)
	m := newAuthManager(t)

	hash, err := m.HashPassword("correct-horse")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM users WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "token_balance", "created_at", "updated_at"}).
			AddRow(1, "Ada", "ada@example.com", hash, models.RoleUser, 0, time.Now(), time.Now()))

	us := NewUserService(s, m)
	_, err = us.Login(context.Background(), &LoginRequest{
		Email:    "Ada@Example.com",
		Password: "battery-staple",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownAccountLooksLikeWrongPassword(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM users WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	us := NewUserService(s, newAuthManager(t))
	_, err := us.Login(context.Background(), &LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	s, mock := newMockStore(t)
	m := newAuthManager(t)

	hash, err := m.HashPassword("correct-horse")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM users WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "token_balance", "created_at", "updated_at"}).
			AddRow(1, "Ada", "ada@example.com", hash, models.RoleUser, 0, time.Now(), time.Now()))

	us := NewUserService(s, m)
	resp, err := us.Login(context.Background(), &LoginRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	claims, err := m.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestGetUserHiddenFromOthers(t *testing.T) {
	s, _ := newMockStore(t)
	us := NewUserService(s, newAuthManager(t))

	_, err := us.GetUser(context.Background(), 2, models.RoleUser, 1)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestUpdateUserRoleChangeRequiresAdmin(t *testing.T) {
	s, _ := newMockStore(t)
	us := NewUserService(s, newAuthManager(t))

	_, err := us.UpdateUser(context.Background(), 1, models.RoleUser, 1, &UpdateUserRequest{
		Role: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrPermission)
}

func TestUpdateUserRejectsUnknownRole(t *testing.T) {
	s, _ := newMockStore(t)
	us := NewUserService(s, newAuthManager(t))

	_, err := us.UpdateUser(context.Background(), 99, models.RoleAdmin, 1, &UpdateUserRequest{
		Role: "superuser",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteUserSelfOrAdminOnly(t *testing.T) {
	s, _ := newMockStore(t)
	us := NewUserService(s, newAuthManager(t))

	err := us.DeleteUser(context.Background(), 2, models.RoleUser, 1)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestListUsersRequiresAdmin(t *testing.T) {
	s, _ := newMockStore(t)
	us := NewUserService(s, newAuthManager(t))

	_, _, err := us.ListUsers(context.Background(), models.RoleUser, store.UserFilter{})
	assert.ErrorIs(t, err, ErrPermission)
}
