package service

import (
	"context"
	"fmt"

	"agent-market/internal/models"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"go.uber.org/zap"
)

// PaymentService handles payment records
type PaymentService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store *store.Store) *PaymentService {
	return &PaymentService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreatePaymentRequest represents a request to record a payment
type CreatePaymentRequest struct {
	OrderID       int64  `json:"order_id" binding:"required"`
	Gateway       string `json:"gateway" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

// CreatePayment records a payment against an existing order.
func (ps *PaymentService) CreatePayment(ctx context.Context, actorID int64, req *CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePayment")
	defer span.End()

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	order, err := ps.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderID:       order.ID,
		UserID:        actorID,
		Gateway:       req.Gateway,
		Status:        models.PaymentStatusPending,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	}

	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	ps.logger.Info("Payment recorded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("order_id", order.ID))
	return payment, nil
}

// GetPayment retrieves a payment. Visible to the payer or an admin.
func (ps *PaymentService) GetPayment(ctx context.Context, actorID int64, actorRole string, paymentID int64) (*models.Payment, error) {
	payment, err := ps.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != actorID && actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot read another buyer's payment", ErrPermission)
	}
	return payment, nil
}

// ListPayments retrieves payments. Non-admin actors only see their own.
func (ps *PaymentService) ListPayments(ctx context.Context, actorID int64, actorRole string, f store.PaymentFilter) ([]models.Payment, int64, error) {
	if actorRole != models.RoleAdmin {
		f.UserID = actorID
	}
	return ps.store.ListPayments(ctx, f)
}

// UpdatePaymentStatus moves a pending payment to a terminal state once.
func (ps *PaymentService) UpdatePaymentStatus(ctx context.Context, actorRole string, paymentID int64, status, transactionID string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.UpdatePaymentStatus")
	defer span.End()

	if actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", ErrPermission)
	}
	if status != models.PaymentStatusSuccess && status != models.PaymentStatusFailed {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
	}

	payment, err := ps.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("%w: payment %d is already %s", ErrValidation, paymentID, payment.Status)
	}

	if transactionID == "" {
		transactionID = payment.TransactionID
	}
	if err := ps.store.UpdatePaymentStatus(ctx, paymentID, status, transactionID); err != nil {
		return nil, err
	}

	payment.Status = status
	payment.TransactionID = transactionID
	return payment, nil
}
