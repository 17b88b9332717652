package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
)

// backend is the subset of the Stripe API the payment sheet talks to.
type backend interface {
	CreateCustomer(ctx context.Context, params *stripe.CustomerCreateParams) (*stripe.Customer, error)
	CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyCreateParams) (*stripe.EphemeralKey, error)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

type apiBackend struct {
	api *stripe.Client
}

func (b apiBackend) CreateCustomer(ctx context.Context, params *stripe.CustomerCreateParams) (*stripe.Customer, error) {
	return b.api.V1Customers.Create(ctx, params)
}

func (b apiBackend) CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyCreateParams) (*stripe.EphemeralKey, error) {
	return b.api.V1EphemeralKeys.Create(ctx, params)
}

func (b apiBackend) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	return b.api.V1PaymentIntents.Create(ctx, params)
}

func (b apiBackend) ConfirmPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	return b.api.V1PaymentIntents.Confirm(ctx, id, params)
}
