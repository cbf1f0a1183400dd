package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"agent-market/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectReviewByID(mock sqlmock.Sqlmock, id, agentID, authorID int64) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM reviews WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "agent_id", "user_id", "rating", "comment", "created_at", "updated_at"}).
			AddRow(id, agentID, authorID, 4, "solid", time.Now(), time.Now()))
}

func TestCreateReviewRejectsRatingOutOfRange(t *testing.T) {
	s, _ := newMockStore(t)
	rs := NewReviewService(s)

	for _, rating := range []int{0, 6, -1} {
		_, err := rs.CreateReview(context.Background(), 7, &CreateReviewRequest{
			AgentID: 1,
			Rating:  rating,
		})
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestCreateReview(t *testing.T) {
	s, mock := newMockStore(t)
	expectAgentByID(mock, 1, 1000, 3)
	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(userRows(7))
	mock.ExpectQuery("INSERT INTO reviews").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(55, time.Now(), time.Now()))

	rs := NewReviewService(s)
	review, err := rs.CreateReview(context.Background(), 7, &CreateReviewRequest{
		AgentID: 1,
		Rating:  5,
		Comment: "does the job",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55), review.ID)
	assert.Equal(t, int64(7), review.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReviewAuthorOnly(t *testing.T) {
	s, mock := newMockStore(t)
	expectReviewByID(mock, 55, 1, 7)

	rs := NewReviewService(s)
	_, err := rs.UpdateReview(context.Background(), 99, 55, &UpdateReviewRequest{Comment: "edited"})
	assert.ErrorIs(t, err, ErrPermission)
}

func TestDeleteReviewByAdmin(t *testing.T) {
	s, mock := newMockStore(t)
	expectReviewByID(mock, 55, 1, 7)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reviews WHERE id = $1")).
		WithArgs(int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rs := NewReviewService(s)
	err := rs.DeleteReview(context.Background(), 99, models.RoleAdmin, 55)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAgentRating(t *testing.T) {
	s, mock := newMockStore(t)
	expectAgentByID(mock, 1, 1000, 3)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"avg", "count"}).AddRow(4.5, 12))

	rs := NewReviewService(s)
	rating, err := rs.GetAgentRating(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4.5, rating.Average)
	assert.Equal(t, int64(12), rating.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
