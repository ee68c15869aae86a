package booking

import (
	"context"
	"fmt"
	"math"

	"agrilink/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
)

// PaymentGateway abstracts the online payment provider. The coordinator only
// needs two operations: start a payment the client finishes via redirect, and
// refund one that landed after its slot hold lapsed.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, amount float64, currency, bookingID string) (*models.PaymentRedirect, error)
	Refund(ctx context.Context, paymentIntentID string) error
}

// StripeGateway is the production gateway, backed by Stripe PaymentIntents.
// stripe.Key is set once at startup from config.
type StripeGateway struct{}

func (g *StripeGateway) InitiatePayment(ctx context.Context, amount float64, currency, bookingID string) (*models.PaymentRedirect, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	// The callback correlates back to us through this.
	params.AddMetadata("bookingId", bookingID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &models.PaymentRedirect{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          amount,
		Currency:        currency,
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to refund payment intent %s: %w", paymentIntentID, err)
	}
	return nil
}

var _ PaymentGateway = (*StripeGateway)(nil)
