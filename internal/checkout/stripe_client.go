package checkout

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/ashu640/ecommerce-backend/pkg/stripe"
)

// PaymentGateway exposes the subset of Stripe operations the orchestrator
// needs, so services can be tested against stubs.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type stripeGateway struct {
	api *stripe.Client
}

// NewPaymentGateway wraps the initialized Stripe client.
func NewPaymentGateway(client *pkgstripe.Client) PaymentGateway {
	if client == nil || client.API() == nil {
		return nil
	}
	return &stripeGateway{api: client.API()}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return g.api.V1CheckoutSessions.Create(ctx, params)
}

func (g *stripeGateway) RetrieveCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return g.api.V1CheckoutSessions.Retrieve(ctx, id, &stripe.CheckoutSessionRetrieveParams{})
}
