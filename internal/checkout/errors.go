package checkout

import (
	"errors"

	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
)

var (
	ErrEmptyCart          = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	ErrAddressMissing     = pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	ErrCheckoutInProgress = pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	ErrNotReady           = pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not ready to pay")
	ErrClosed             = pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session closed")

	// ErrOrderPending blocks a new attempt while a captured payment still
	// has no order. Pay retries the save; Reset abandons it.
	ErrOrderPending = pkgerrors.New(pkgerrors.CodeStateConflict, "a captured payment is waiting for its order to be saved")

	// ErrStalePaymentHandle marks a handle issued for different cart content.
	// Pay prepares again once; if the cart keeps moving it is returned wrapped
	// in a conflict.
	ErrStalePaymentHandle = errors.New("payment handle is stale")
)

// InitializationError wraps a failure to create or initialize the payment
// sheet. The attempt can be retried with Prepare.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return "payment initialization failed: " + e.Err.Error()
}

func (e *InitializationError) Unwrap() error { return e.Err }

// PaymentDeclinedError carries the provider's message for a failed payment.
type PaymentDeclinedError struct {
	Message string
	Err     error
}

func (e *PaymentDeclinedError) Error() string {
	return "payment declined: " + e.Message
}

func (e *PaymentDeclinedError) Unwrap() error { return e.Err }

// OrderPersistenceError means the payment was captured but the order could
// not be recorded. It needs manual reconciliation against PaymentIntentID.
type OrderPersistenceError struct {
	PaymentIntentID string
	Err             error
}

func (e *OrderPersistenceError) Error() string {
	return "payment captured but order was not saved: " + e.Err.Error()
}

func (e *OrderPersistenceError) Unwrap() error { return e.Err }

// PaymentCaptured is always true; it lets callers branch without a type switch.
func (e *OrderPersistenceError) PaymentCaptured() bool { return true }

func initializationFailed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, &InitializationError{Err: err}, "payment initialization failed").
		WithDetails(map[string]any{"step": "initialize", "retryable": true})
}

func paymentDeclined(message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, &PaymentDeclinedError{Message: message, Err: err}, message).
		WithDetails(map[string]any{"step": "present", "provider_message": message})
}

func orderPersistenceFailed(paymentIntentID string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodePaymentCapturedOrderFailed, &OrderPersistenceError{PaymentIntentID: paymentIntentID, Err: err}, "order persistence failed after payment").
		WithDetails(map[string]any{
			"step":              "persist_order",
			"payment_captured":  true,
			"payment_intent_id": paymentIntentID,
		})
}
