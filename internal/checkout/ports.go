package checkout

import (
	"context"
	"time"

	"github.com/angelmondragon/teahouse-backend/internal/cart"
	"github.com/angelmondragon/teahouse-backend/internal/orders"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
	"github.com/google/uuid"
)

// CartSource is the slice of the cart store checkout reads and settles.
type CartSource interface {
	Items() []cart.LineItem
	Fingerprint() uint64
	Pricing() cart.Pricing
	RemovePaid(paid []cart.LineItem)
}

// IntentCreator issues a payment handle for an amount in minor units.
type IntentCreator interface {
	CreatePaymentSheet(ctx context.Context, userID uuid.UUID, req payments.IntentRequest) (payments.Handle, error)
}

// Sheet is the payment confirmation surface. Present returns nil on success
// and payments.ErrCanceled when the shopper backs out.
type Sheet interface {
	Initialize(ctx context.Context, handle payments.Handle, cfg payments.SheetConfig) error
	Present(ctx context.Context) error
}

// AddressSource reads the shipping address from the shopper's profile. An
// empty string means no address is set.
type AddressSource interface {
	GetAddress(ctx context.Context, userID uuid.UUID) (string, error)
}

// OrderWriter records a paid order and its line rows.
type OrderWriter interface {
	PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*orders.OrderDTO, error)
}

// Recorder receives checkout timings and outcomes.
type Recorder interface {
	ObserveStep(step string, elapsed time.Duration)
	ObserveOutcome(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStep(string, time.Duration) {}
func (nopRecorder) ObserveOutcome(string)             {}
