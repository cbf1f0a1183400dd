package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"agent-market/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStoreWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPageParamsNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         PageParams
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", PageParams{}, 1, 20, 0},
		{"negative page", PageParams{Page: -3, Limit: 10}, 1, 10, 0},
		{"second page", PageParams{Page: 2, Limit: 10}, 2, 10, 10},
		{"limit capped", PageParams{Page: 1, Limit: 500}, 1, 100, 0},
		{"fifth page", PageParams{Page: 5, Limit: 25}, 5, 25, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}

func TestGetAgentByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM agents WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetAgentByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAgentsPagination(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM agents WHERE 1=1 AND category = $1")).
		WithArgs("coding").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))

	rows := sqlmock.NewRows([]string{"id", "name", "description", "category", "price", "recurring_price", "creator_id", "created_at", "updated_at"})
	for i := int64(1); i <= 10; i++ {
		rows.AddRow(i, "agent", "", "coding", 1000, nil, 1, time.Now(), time.Now())
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM agents WHERE 1=1 AND category = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("coding", 10, 20).
		WillReturnRows(rows)

	agents, total, err := s.ListAgents(context.Background(), AgentFilter{
		Category:   "coding",
		PageParams: PageParams{Page: 3, Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, agents, 10)
	assert.Equal(t, int64(45), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderDuplicateTransactionID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505"})

	agentID := int64(2)
	err := s.CreateOrder(context.Background(), &models.Order{
		UserID:        1,
		AgentID:       &agentID,
		Status:        models.OrderStatusCompleted,
		Kind:          models.OrderKindOneTime,
		Amount:        5000,
		TransactionID: "pi_123-2",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.CreateUser(context.Background(), &models.User{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAgentNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM agents WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteAgent(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
