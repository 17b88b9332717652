package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
)

// Stripe caps a metadata value at 500 characters.
const maxMetadataValue = 500

var errSheetNotInitialized = errors.New("payment sheet not initialized")

// PaymentSheet issues payment-sheet handles backed by Stripe payment intents.
// Customers are created once per user and reused for the process lifetime.
type PaymentSheet struct {
	backend       backend
	currency      string
	confirmMethod string
	logg          *logger.Logger

	mu        sync.Mutex
	customers map[uuid.UUID]string
}

// NewPaymentSheet binds a PaymentSheet to an initialized client.
func NewPaymentSheet(client *Client, logg *logger.Logger) (*PaymentSheet, error) {
	if client == nil || client.API() == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return newPaymentSheet(apiBackend{api: client.API()}, client.Currency(), client.confirmPaymentMethod, logg), nil
}

func newPaymentSheet(b backend, currency, confirmMethod string, logg *logger.Logger) *PaymentSheet {
	if logg == nil {
		logg = logger.Nop()
	}
	return &PaymentSheet{
		backend:       b,
		currency:      currency,
		confirmMethod: confirmMethod,
		logg:          logg,
		customers:     map[uuid.UUID]string{},
	}
}

// CreatePaymentSheet creates a payment intent for req.Amount minor units plus
// the ephemeral key and customer the sheet needs.
func (p *PaymentSheet) CreatePaymentSheet(ctx context.Context, userID uuid.UUID, req payments.IntentRequest) (payments.Handle, error) {
	if userID == uuid.Nil {
		return payments.Handle{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if req.Amount <= 0 {
		return payments.Handle{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	customerID, err := p.customerFor(ctx, userID)
	if err != nil {
		return payments.Handle{}, err
	}

	key, err := p.backend.CreateEphemeralKey(ctx, &stripe.EphemeralKeyCreateParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(stripe.APIVersion),
	})
	if err != nil {
		return payments.Handle{}, wrapProviderError(err, "create ephemeral key")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(p.currency),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("cart_items", cartMetadata(req.CartItems))

	intent, err := p.backend.CreatePaymentIntent(ctx, params)
	if err != nil {
		return payments.Handle{}, wrapProviderError(err, "create payment intent")
	}

	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"payment_intent_id": intent.ID,
		"amount_minor":      req.Amount,
		"currency":          p.currency,
	}), "stripe.payment_intent_created")

	return payments.Handle{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		EphemeralKey:    key.Secret,
		CustomerID:      customerID,
	}, nil
}

// NewSheet returns a sheet that confirms intents issued by p.
func (p *PaymentSheet) NewSheet() *Sheet {
	return &Sheet{backend: p.backend, confirmMethod: p.confirmMethod, logg: p.logg}
}

func (p *PaymentSheet) customerFor(ctx context.Context, userID uuid.UUID) (string, error) {
	p.mu.Lock()
	id, ok := p.customers[userID]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	params := &stripe.CustomerCreateParams{}
	params.AddMetadata("user_id", userID.String())
	customer, err := p.backend.CreateCustomer(ctx, params)
	if err != nil {
		return "", wrapProviderError(err, "create customer")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.customers[userID]; ok {
		return existing, nil
	}
	p.customers[userID] = customer.ID
	return customer.ID, nil
}

// Sheet confirms one shopper's payment intent server side with the
// configured payment method.
type Sheet struct {
	backend       backend
	confirmMethod string
	logg          *logger.Logger

	mu     sync.Mutex
	handle *payments.Handle
	cfg    payments.SheetConfig
}

// Initialize stores the handle the next Present confirms.
func (s *Sheet) Initialize(ctx context.Context, handle payments.Handle, cfg payments.SheetConfig) error {
	if !handle.Valid() || strings.TrimSpace(handle.PaymentIntentID) == "" {
		return errors.New("payment handle is incomplete")
	}
	if strings.TrimSpace(cfg.MerchantDisplayName) == "" {
		return errors.New("merchant display name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := handle
	s.handle = &h
	s.cfg = cfg
	return nil
}

// Present confirms the initialized intent. It returns payments.ErrCanceled
// only when the provider reports the intent canceled. Transport failures,
// including a canceled ctx, come back as a *payments.ProviderError.
func (s *Sheet) Present(ctx context.Context) error {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()
	if handle == nil {
		return errSheetNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &stripe.PaymentIntentConfirmParams{}
	if s.confirmMethod != "" {
		params.PaymentMethod = stripe.String(s.confirmMethod)
	}
	intent, err := s.backend.ConfirmPaymentIntent(ctx, handle.PaymentIntentID, params)
	if err != nil {
		return toProviderError(err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		s.mu.Lock()
		s.handle = nil
		s.mu.Unlock()
		return nil
	case stripe.PaymentIntentStatusCanceled:
		return payments.ErrCanceled
	case stripe.PaymentIntentStatusRequiresAction:
		return &payments.ProviderError{Code: "authentication_required", Message: "The payment requires additional authentication."}
	default:
		if intent.LastPaymentError != nil {
			return toProviderError(intent.LastPaymentError)
		}
		return &payments.ProviderError{Code: string(intent.Status), Message: "The payment could not be completed."}
	}
}

func toProviderError(err error) *payments.ProviderError {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := string(stripeErr.Code)
		if stripeErr.DeclineCode != "" {
			code = string(stripeErr.DeclineCode)
		}
		message := stripeErr.Msg
		if message == "" {
			message = stripeErr.Error()
		}
		return &payments.ProviderError{Code: code, Message: message, Err: err}
	}
	return &payments.ProviderError{Message: err.Error(), Err: err}
}

func wrapProviderError(err error, step string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, toProviderError(err), step)
}

func cartMetadata(items []payments.LineRef) string {
	if len(items) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(items)
	if err != nil || len(raw) > maxMetadataValue {
		return fmt.Sprintf("%d lines", len(items))
	}
	return string(raw)
}
