package payments

import "context"

// Session is the provider-neutral view of a hosted checkout session. Metadata
// is the only contract between the marketplace and the provider beyond
// amount, currency and redirect URLs.
type Session struct {
	ID              string
	URL             string
	AmountTotal     int64
	Currency        string
	PaymentIntentID string
	PaymentStatus   string
	Metadata        map[string]string
}

// LineItem is one purchasable entry in a checkout session.
type LineItem struct {
	Name   string
	Amount int64
	Qty    int64
}

// SessionRequest describes the checkout session to create. Metadata carries
// the buyer id and agent id list opaquely; the provider does not interpret it.
type SessionRequest struct {
	Items    []LineItem
	Metadata map[string]string
}

// Provider creates and fetches hosted checkout sessions.
type Provider interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}

// Metadata keys written at session creation and read back at fulfillment.
const (
	MetaUserID   = "user_id"
	MetaAgentIDs = "agent_ids"
	MetaKind     = "kind"
	MetaTokens   = "tokens"
)
