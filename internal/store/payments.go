package store

import (
	"context"
	"database/sql"
	"fmt"

	"agent-market/internal/models"
)

// PaymentFilter holds list filters for payments.
type PaymentFilter struct {
	UserID  int64
	OrderID int64
	Status  string
	PageParams
}

// CreatePayment inserts a new payment record. Transaction id is unique.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, user_id, gateway, status, amount, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.UserID, payment.Gateway, payment.Status, payment.Amount, payment.TransactionID)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction id %s: %w", payment.TransactionID, ErrDuplicate)
	}
	return err
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentByOrderID retrieves the latest payment for an order
func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment for order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPayments retrieves payments matching the filter with offset pagination.
func (s *Store) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, int64, error) {
	p := f.Normalize()

	where := " WHERE 1=1"
	args := []interface{}{}
	n := 0
	if f.UserID != 0 {
		n++
		where += fmt.Sprintf(" AND user_id = $%d", n)
		args = append(args, f.UserID)
	}
	if f.OrderID != 0 {
		n++
		where += fmt.Sprintf(" AND order_id = $%d", n)
		args = append(args, f.OrderID)
	}
	if f.Status != "" {
		n++
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, f.Status)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payments"+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT * FROM payments%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", where, n+1, n+2)
	args = append(args, p.Limit, p.Offset())

	var payments []models.Payment
	if err := s.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// UpdatePaymentStatus updates payment status and transaction id
func (s *Store) UpdatePaymentStatus(ctx context.Context, paymentID int64, status, transactionID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, transaction_id = $2, updated_at = NOW() WHERE id = $3",
		status, transactionID, paymentID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
	}
	return nil
}
