package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"agent-market/internal/models"
	"agent-market/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectAgentByID(mock sqlmock.Sqlmock, id, price, creatorID int64) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM agents WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(agentRows([3]int64{id, price, creatorID}))
}

func TestCreateAgentRejectsNonPositivePrice(t *testing.T) {
	s, _ := newMockStore(t)
	as := NewAgentService(s, nil)

	_, err := as.CreateAgent(context.Background(), 1, &CreateAgentRequest{
		Name: "a", Category: "coding", Price: 0,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateAgentRejectsUnknownCreator(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	as := NewAgentService(s, nil)
	_, err := as.CreateAgent(context.Background(), 404, &CreateAgentRequest{
		Name: "a", Category: "coding", Price: 1000,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateAgentCreatorOnly(t *testing.T) {
	s, mock := newMockStore(t)
	expectAgentByID(mock, 5, 1000, 3)

	as := NewAgentService(s, nil)
	_, err := as.UpdateAgent(context.Background(), 99, 5, &UpdateAgentRequest{Name: "renamed"})
	assert.ErrorIs(t, err, ErrPermission)
}

func TestUpdateAgentByCreator(t *testing.T) {
	s, mock := newMockStore(t)
	expectAgentByID(mock, 5, 1000, 3)
	mock.ExpectQuery("UPDATE agents SET").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	as := NewAgentService(s, nil)
	newPrice := int64(2000)
	agent, err := as.UpdateAgent(context.Background(), 3, 5, &UpdateAgentRequest{
		Name:  "renamed",
		Price: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", agent.Name)
	assert.Equal(t, int64(2000), agent.Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAgentByNonCreatorNonAdmin(t *testing.T) {
	s, mock := newMockStore(t)
	expectAgentByID(mock, 5, 1000, 3)

	as := NewAgentService(s, nil)
	err := as.DeleteAgent(context.Background(), 99, models.RoleUser, 5)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestDeleteAgentByAdmin(t *testing.T) {
	s, mock := newMockStore(t)
	expectAgentByID(mock, 5, 1000, 3)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM agents WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	as := NewAgentService(s, nil)
	err := as.DeleteAgent(context.Background(), 99, models.RoleAdmin, 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
