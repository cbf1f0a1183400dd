package service

import (
	"context"
	"fmt"

	"agent-market/internal/models"
	"agent-market/internal/store"
	"agent-market/internal/util"

	"go.uber.org/zap"
)

// OrderService handles order reads and status transitions. Orders are
// created by the fulfillment reconciler, not here.
type OrderService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store) *OrderService {
	return &OrderService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Legal order status transitions. Completed orders may only be refunded.
var orderTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusCompleted, models.OrderStatusFailed},
	models.OrderStatusCompleted: {models.OrderStatusRefunded},
}

// GetOrder retrieves an order. Visible to the buyer or an admin.
func (os *OrderService) GetOrder(ctx context.Context, actorID int64, actorRole string, orderID int64) (*models.Order, error) {
	order, err := os.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actorID && actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot read another buyer's order", ErrPermission)
	}
	return order, nil
}

// ListOrders retrieves orders. Non-admin actors only see their own.
func (os *OrderService) ListOrders(ctx context.Context, actorID int64, actorRole string, f store.OrderFilter) ([]models.Order, int64, error) {
	if actorRole != models.RoleAdmin {
		f.UserID = actorID
	}
	return os.store.ListOrders(ctx, f)
}

// UpdateOrderStatus transitions an order. Admin only; illegal transitions
// are rejected.
func (os *OrderService) UpdateOrderStatus(ctx context.Context, actorRole string, orderID int64, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	if actorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", ErrPermission)
	}

	order, err := os.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range orderTransitions[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot transition order from %s to %s", ErrValidation, order.Status, status)
	}

	if err := os.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	os.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", status))

	order.Status = status
	return order, nil
}

// DeleteOrder removes an order record. Admin only.
func (os *OrderService) DeleteOrder(ctx context.Context, actorRole string, orderID int64) error {
	if actorRole != models.RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrPermission)
	}
	return os.store.DeleteOrder(ctx, orderID)
}
