package payments

import (
	"context"
	"fmt"

	"agent-market/config"
	"agent-market/internal/util"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeBroker creates hosted checkout sessions through the Stripe SDK.
type StripeBroker struct {
	sc       *client.API
	currency string
	success  string
	cancel   string
	logger   *zap.Logger
}

// NewStripeBroker constructs the broker. Missing key or redirect URLs is
// fatal here rather than at first use.
func NewStripeBroker(cfg config.StripeConfig) (*StripeBroker, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe: missing secret key")
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return nil, fmt.Errorf("stripe: missing redirect URLs")
	}

	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)

	return &StripeBroker{
		sc:       sc,
		currency: cfg.Currency,
		success:  cfg.SuccessURL,
		cancel:   cfg.CancelURL,
		logger:   util.GetLogger(),
	}, nil
}

// CreateSession creates a hosted checkout session. Provider errors are
// wrapped into a generic fault; the cause is logged only.
func (b *StripeBroker) CreateSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(b.success + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(b.cancel),
	}
	params.Context = ctx

	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(b.currency),
				UnitAmount: stripe.Int64(item.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(item.Qty),
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := b.sc.CheckoutSessions.New(params)
	if err != nil {
		b.logger.Error("Stripe session creation failed", zap.Error(err))
		return nil, fmt.Errorf("could not create checkout session")
	}

	return fromStripeSession(sess), nil
}

// GetSession fetches the authoritative session record from Stripe.
func (b *StripeBroker) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := b.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		b.logger.Error("Stripe session fetch failed",
			zap.String("session_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("could not fetch checkout session")
	}

	return fromStripeSession(sess), nil
}

func fromStripeSession(sess *stripe.CheckoutSession) *Session {
	s := &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		s.PaymentIntentID = sess.PaymentIntent.ID
	}
	return s
}
