package models

import "time"

// Event types
const (
	EventTypeCheckoutCompleted = "CHECKOUT_COMPLETED"
	EventTypeOwnershipGranted  = "OWNERSHIP_GRANTED"
	EventTypeOrderRecorded     = "ORDER_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutCompletedEvent published when the payment provider reports a
// completed hosted-checkout session (webhook path). Consumed by the
// fulfillment worker.
type CheckoutCompletedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
}

// OwnershipGrantedEvent published after a session has been reconciled and
// agents were appended to the buyer's ownership set.
type OwnershipGrantedEvent struct {
	BaseEvent
	SessionID string  `json:"session_id"`
	UserID    int64   `json:"user_id"`
	AgentIDs  []int64 `json:"agent_ids"`
}

// OrderRecordedEvent published once per order written during fulfillment.
type OrderRecordedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	UserID        int64  `json:"user_id"`
	AgentID       *int64 `json:"agent_id,omitempty"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
}
