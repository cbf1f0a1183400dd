package service

import (
	"context"
	"testing"
	"time"

	"agent-market/internal/models"
	"agent-market/internal/payments"
	"agent-market/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.NewStoreWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

type fakeProvider struct {
	sessions map[string]*payments.Session
	created  []*payments.SessionRequest
	err      error
}

func (f *fakeProvider) CreateSession(_ context.Context, req *payments.SessionRequest) (*payments.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &payments.Session{
		ID:       "sess_new",
		URL:      "https://checkout.example/sess_new",
		Metadata: req.Metadata,
	}, nil
}

func (f *fakeProvider) GetSession(_ context.Context, id string) (*payments.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	sess, ok := f.sessions[id]
	if !ok {
		return nil, assert.AnError
	}
	return sess, nil
}

func userRows(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "token_balance", "created_at", "updated_at"}).
		AddRow(id, "Buyer", "buyer@example.com", "x", models.RoleUser, 0, time.Now(), time.Now())
}

func agentRows(agents ...[3]int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "description", "category", "price", "recurring_price", "creator_id", "created_at", "updated_at"})
	for _, a := range agents {
		rows.AddRow(a[0], "Agent", "", "coding", a[1], nil, a[2], time.Now(), time.Now())
	}
	return rows
}

func paidSession(id string, md map[string]string) *payments.Session {
	return &payments.Session{
		ID:              id,
		PaymentIntentID: "pi_" + id,
		PaymentStatus:   "paid",
		AmountTotal:     10000,
		Metadata:        md,
	}
}

func TestReconcileGrantsOwnershipAndRecordsOrders(t *testing.T) {
	s, mock := newMockStore(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{
		"sess_1": paidSession("sess_1", map[string]string{
			payments.MetaUserID:   "7",
			payments.MetaAgentIDs: "1,2",
			payments.MetaKind:     models.OrderKindOneTime,
		}),
	}}

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(userRows(7))
	mock.ExpectQuery(`SELECT \* FROM agents WHERE id IN`).
		WillReturnRows(agentRows([3]int64{1, 4000, 3}, [3]int64{2, 6000, 3}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fulfilled_sessions").
		WithArgs("sess_1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_agents").
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_agents").
		WithArgs(int64(7), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(101, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(102, time.Now(), time.Now()))
	mock.ExpectCommit()

	r := NewReconciler(s, provider, nil, nil)
	result, err := r.Reconcile(context.Background(), "sess_1")
	require.NoError(t, err)

	assert.Equal(t, FulfillmentFulfilled, result.Status)
	assert.Equal(t, int64(7), result.UserID)
	assert.Equal(t, []int64{1, 2}, result.GrantedAgentIDs)
	assert.Empty(t, result.SkippedAgentIDs)

	require.Len(t, result.Orders, 2)
	for i, order := range result.Orders {
		assert.Equal(t, models.OrderStatusCompleted, order.Status)
		assert.Equal(t, int64(7), order.UserID)
		assert.Equal(t, int64(i+1), *order.AgentID)
	}
	// Each order carries a transaction id derived from the payment intent.
	assert.Equal(t, "pi_sess_1-1", result.Orders[0].TransactionID)
	assert.Equal(t, "pi_sess_1-2", result.Orders[1].TransactionID)
	assert.Equal(t, int64(4000), result.Orders[0].Amount)
	assert.Equal(t, int64(6000), result.Orders[1].Amount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileTwiceDoesNotDoubleGrant(t *testing.T) {
	s, mock := newMockStore(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{
		"sess_1": paidSession("sess_1", map[string]string{
			payments.MetaUserID:   "7",
			payments.MetaAgentIDs: "1",
		}),
	}}

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(userRows(7))
	mock.ExpectQuery(`SELECT \* FROM agents WHERE id IN`).
		WillReturnRows(agentRows([3]int64{1, 4000, 3}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fulfilled_sessions").
		WithArgs("sess_1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	r := NewReconciler(s, provider, nil, nil)
	result, err := r.Reconcile(context.Background(), "sess_1")
	require.NoError(t, err)

	assert.Equal(t, FulfillmentAlreadyFulfilled, result.Status)
	assert.Empty(t, result.GrantedAgentIDs)
	assert.Empty(t, result.Orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileSkipsMissingAgents(t *testing.T) {
	s, mock := newMockStore(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{
		"sess_1": paidSession("sess_1", map[string]string{
			payments.MetaUserID:   "7",
			payments.MetaAgentIDs: "1,99",
		}),
	}}

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(userRows(7))
	mock.ExpectQuery(`SELECT \* FROM agents WHERE id IN`).
		WillReturnRows(agentRows([3]int64{1, 4000, 3}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fulfilled_sessions").
		WithArgs("sess_1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_agents").
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(101, time.Now(), time.Now()))
	mock.ExpectCommit()

	r := NewReconciler(s, provider, nil, nil)
	result, err := r.Reconcile(context.Background(), "sess_1")
	require.NoError(t, err)

	assert.Equal(t, FulfillmentPartial, result.Status)
	assert.Equal(t, []int64{1}, result.GrantedAgentIDs)
	assert.Equal(t, []int64{99}, result.SkippedAgentIDs)
	assert.Len(t, result.Orders, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileFailsOnMissingBuyer(t *testing.T) {
	s, mock := newMockStore(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{
		"sess_1": paidSession("sess_1", map[string]string{
			payments.MetaUserID:   "7",
			payments.MetaAgentIDs: "1",
		}),
	}}

	// Buyer account is gone.
	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := NewReconciler(s, provider, nil, nil)
	_, err := r.Reconcile(context.Background(), "sess_1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileRejectsUnpaidSession(t *testing.T) {
	s, _ := newMockStore(t)
	sess := paidSession("sess_1", map[string]string{payments.MetaUserID: "7"})
	sess.PaymentStatus = "unpaid"
	provider := &fakeProvider{sessions: map[string]*payments.Session{"sess_1": sess}}

	r := NewReconciler(s, provider, nil, nil)
	_, err := r.Reconcile(context.Background(), "sess_1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReconcileRejectsMetadataWithoutBuyer(t *testing.T) {
	s, _ := newMockStore(t)
	provider := &fakeProvider{sessions: map[string]*payments.Session{
		"sess_1": paidSession("sess_1", map[string]string{payments.MetaAgentIDs: "1,2"}),
	}}

	r := NewReconciler(s, provider, nil, nil)
	_, err := r.Reconcile(context.Background(), "sess_1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReconcileTokenPurchase(t *testing.T) {
	s, mock := newMockStore(t)
	sess := paidSession("sess_tok", map[string]string{
		payments.MetaUserID: "9",
		payments.MetaKind:   models.OrderKindTokenPurchase,
		payments.MetaTokens: "500",
	})
	sess.AmountTotal = 2500
	provider := &fakeProvider{sessions: map[string]*payments.Session{"sess_tok": sess}}

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(userRows(9))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fulfilled_sessions").
		WithArgs("sess_tok", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET token_balance").
		WithArgs(int64(500), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(301, time.Now(), time.Now()))
	mock.ExpectCommit()

	r := NewReconciler(s, provider, nil, nil)
	result, err := r.Reconcile(context.Background(), "sess_tok")
	require.NoError(t, err)

	assert.Equal(t, FulfillmentFulfilled, result.Status)
	assert.Equal(t, int64(500), result.TokensCredited)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, models.OrderKindTokenPurchase, result.Orders[0].Kind)
	assert.Nil(t, result.Orders[0].AgentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileRequiresSessionID(t *testing.T) {
	s, _ := newMockStore(t)
	r := NewReconciler(s, &fakeProvider{}, nil, nil)

	_, err := r.Reconcile(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}
