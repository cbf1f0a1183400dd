package models

import "time"

// Agent represents a listed AI agent in the catalog
type Agent struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Category       string    `db:"category" json:"category"`
	Price          int64     `db:"price" json:"price"`
	RecurringPrice *int64    `db:"recurring_price" json:"recurring_price,omitempty"`
	CreatorID      int64     `db:"creator_id" json:"creator_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// User represents a marketplace account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	TokenBalance int64     `db:"token_balance" json:"token_balance"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a purchase record
type Order struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	AgentID       *int64    `db:"agent_id" json:"agent_id,omitempty"`
	Status        string    `db:"status" json:"status"`
	Kind          string    `db:"kind" json:"kind"`
	Amount        int64     `db:"amount" json:"amount"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Payment represents a gateway payment record
type Payment struct {
	ID            int64     `db:"id" json:"id"`
	OrderID       int64     `db:"order_id" json:"order_id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Gateway       string    `db:"gateway" json:"gateway"`
	Status        string    `db:"status" json:"status"`
	Amount        int64     `db:"amount" json:"amount"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Review represents a user review of an agent
type Review struct {
	ID        int64     `db:"id" json:"id"`
	AgentID   int64     `db:"agent_id" json:"agent_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FulfilledSession records a checkout session that has been reconciled.
// The session id is the idempotency key for the whole fulfillment.
type FulfilledSession struct {
	SessionID   string    `db:"session_id"`
	UserID      int64     `db:"user_id"`
	ProcessedAt time.Time `db:"processed_at"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
	OrderStatusRefunded  = "refunded"
)

// Order kinds
const (
	OrderKindOneTime       = "one-time"
	OrderKindSubscription  = "subscription"
	OrderKindTokenPurchase = "token-purchase"
)

// Payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)
