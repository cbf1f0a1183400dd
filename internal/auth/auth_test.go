package auth

import (
	"testing"
	"time"

	"agent-market/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour, 4)
	require.NoError(t, err)

	user := &models.User{ID: 42, Role: models.RoleAdmin}

	token, err := m.IssueToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m1, err := NewManager("secret-one", time.Hour, 4)
	require.NoError(t, err)
	m2, err := NewManager("secret-two", time.Hour, 4)
	require.NoError(t, err)

	token, err := m1.IssueToken(&models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	_, err = m2.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, err := NewManager("test-secret", -time.Minute, 4)
	require.NoError(t, err)

	token, err := m.IssueToken(&models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.Error(t, err)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := NewManager("", time.Hour, 4)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour, 4)
	require.NoError(t, err)

	hash, err := m.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, m.CheckPassword(hash, "hunter22"))
	assert.False(t, m.CheckPassword(hash, "hunter23"))
}
