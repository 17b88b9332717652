package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
)

type fakeBackend struct {
	customerCalls int
	customerErr   error
	keyErr        error
	intentErr     error
	confirmErr    error
	confirmStatus stripe.PaymentIntentStatus
	lastPayErr    *stripe.Error

	intentParams  *stripe.PaymentIntentCreateParams
	keyParams     *stripe.EphemeralKeyCreateParams
	confirmedID   string
	confirmParams *stripe.PaymentIntentConfirmParams
}

func (f *fakeBackend) CreateCustomer(ctx context.Context, params *stripe.CustomerCreateParams) (*stripe.Customer, error) {
	f.customerCalls++
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	return &stripe.Customer{ID: "cus_123"}, nil
}

func (f *fakeBackend) CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyCreateParams) (*stripe.EphemeralKey, error) {
	f.keyParams = params
	if f.keyErr != nil {
		return nil, f.keyErr
	}
	return &stripe.EphemeralKey{ID: "ephkey_1", Secret: "ek_secret"}, nil
}

func (f *fakeBackend) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	f.intentParams = params
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

func (f *fakeBackend) ConfirmPaymentIntent(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	f.confirmedID = id
	f.confirmParams = params
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	status := f.confirmStatus
	if status == "" {
		status = stripe.PaymentIntentStatusSucceeded
	}
	return &stripe.PaymentIntent{ID: id, Status: status, LastPaymentError: f.lastPayErr}, nil
}

func sheetConfig() payments.SheetConfig {
	return payments.SheetConfig{MerchantDisplayName: "Tea App", Appearance: payments.DefaultAppearance()}
}

func TestCreatePaymentSheetBuildsHandle(t *testing.T) {
	backend := &fakeBackend{}
	sheet := newPaymentSheet(backend, "lkr", "pm_card_visa", nil)
	userID := uuid.New()

	handle, err := sheet.CreatePaymentSheet(context.Background(), userID, payments.IntentRequest{
		Amount:    27000,
		CartItems: []payments.LineRef{{ID: "p1", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("CreatePaymentSheet: %v", err)
	}
	if !handle.Valid() || handle.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected handle %+v", handle)
	}
	if handle.ClientSecret != "pi_123_secret" || handle.EphemeralKey != "ek_secret" || handle.CustomerID != "cus_123" {
		t.Fatalf("unexpected handle fields %+v", handle)
	}
	if got := *backend.intentParams.Amount; got != 27000 {
		t.Fatalf("expected amount 27000, got %d", got)
	}
	if got := *backend.intentParams.Currency; got != "lkr" {
		t.Fatalf("expected currency lkr, got %s", got)
	}
	if got := backend.intentParams.Metadata["user_id"]; got != userID.String() {
		t.Fatalf("expected user metadata, got %q", got)
	}
	var refs []payments.LineRef
	if err := json.Unmarshal([]byte(backend.intentParams.Metadata["cart_items"]), &refs); err != nil {
		t.Fatalf("cart metadata is not json: %v", err)
	}
	if len(refs) != 1 || refs[0].Quantity != 3 {
		t.Fatalf("unexpected cart metadata %+v", refs)
	}
	if *backend.keyParams.Customer != "cus_123" {
		t.Fatalf("ephemeral key not bound to customer")
	}
}

func TestCreatePaymentSheetReusesCustomer(t *testing.T) {
	backend := &fakeBackend{}
	sheet := newPaymentSheet(backend, "lkr", "", nil)
	userID := uuid.New()
	req := payments.IntentRequest{Amount: 100}

	for i := 0; i < 2; i++ {
		if _, err := sheet.CreatePaymentSheet(context.Background(), userID, req); err != nil {
			t.Fatalf("CreatePaymentSheet: %v", err)
		}
	}
	if backend.customerCalls != 1 {
		t.Fatalf("expected one customer, got %d", backend.customerCalls)
	}
}

func TestCreatePaymentSheetRejectsInvalidInput(t *testing.T) {
	sheet := newPaymentSheet(&fakeBackend{}, "lkr", "", nil)

	if _, err := sheet.CreatePaymentSheet(context.Background(), uuid.Nil, payments.IntentRequest{Amount: 1}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := sheet.CreatePaymentSheet(context.Background(), uuid.New(), payments.IntentRequest{Amount: 0}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePaymentSheetWrapsProviderFailure(t *testing.T) {
	backend := &fakeBackend{intentErr: &stripe.Error{Code: stripe.ErrorCodeAmountTooSmall, Msg: "Amount must be at least 50"}}
	sheet := newPaymentSheet(backend, "lkr", "", nil)

	_, err := sheet.CreatePaymentSheet(context.Background(), uuid.New(), payments.IntentRequest{Amount: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	var providerErr *payments.ProviderError
	if !errors.As(err, &providerErr) || providerErr.Message != "Amount must be at least 50" {
		t.Fatalf("expected provider message, got %v", err)
	}
}

func TestSheetPresentRequiresInitialize(t *testing.T) {
	sheet := newPaymentSheet(&fakeBackend{}, "lkr", "", nil).NewSheet()
	if err := sheet.Present(context.Background()); !errors.Is(err, errSheetNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}

func TestSheetInitializeRejectsIncompleteHandle(t *testing.T) {
	sheet := newPaymentSheet(&fakeBackend{}, "lkr", "", nil).NewSheet()
	err := sheet.Initialize(context.Background(), payments.Handle{ClientSecret: "s"}, sheetConfig())
	if err == nil {
		t.Fatal("expected incomplete handle to fail")
	}
}

func TestSheetPresentOutcomes(t *testing.T) {
	handle := payments.Handle{PaymentIntentID: "pi_9", ClientSecret: "s", EphemeralKey: "e", CustomerID: "c"}

	cases := []struct {
		name     string
		backend  *fakeBackend
		canceled bool
		declined string
	}{
		{name: "succeeded", backend: &fakeBackend{}},
		{name: "processing", backend: &fakeBackend{confirmStatus: stripe.PaymentIntentStatusProcessing}},
		{name: "canceled", backend: &fakeBackend{confirmStatus: stripe.PaymentIntentStatusCanceled}, canceled: true},
		{name: "card error", backend: &fakeBackend{confirmErr: &stripe.Error{Code: stripe.ErrorCodeCardDeclined, DeclineCode: "insufficient_funds", Msg: "Your card has insufficient funds."}}, declined: "Your card has insufficient funds."},
		{name: "requires payment method", backend: &fakeBackend{
			confirmStatus: stripe.PaymentIntentStatusRequiresPaymentMethod,
			lastPayErr:    &stripe.Error{Code: stripe.ErrorCodeCardDeclined, Msg: "Your card was declined."},
		}, declined: "Your card was declined."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sheet := newPaymentSheet(tc.backend, "lkr", "pm_card_visa", nil).NewSheet()
			if err := sheet.Initialize(context.Background(), handle, sheetConfig()); err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			err := sheet.Present(context.Background())
			switch {
			case tc.canceled:
				if !errors.Is(err, payments.ErrCanceled) {
					t.Fatalf("expected canceled, got %v", err)
				}
			case tc.declined != "":
				var providerErr *payments.ProviderError
				if !errors.As(err, &providerErr) || providerErr.Message != tc.declined {
					t.Fatalf("expected provider message %q, got %v", tc.declined, err)
				}
			default:
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
			}
			if tc.backend.confirmedID != "pi_9" {
				t.Fatalf("expected pi_9 confirmed, got %q", tc.backend.confirmedID)
			}
			if *tc.backend.confirmParams.PaymentMethod != "pm_card_visa" {
				t.Fatalf("expected configured payment method")
			}
		})
	}
}

func TestSheetPresentTransportCancelIsNotShopperCancel(t *testing.T) {
	handle := payments.Handle{PaymentIntentID: "pi_9", ClientSecret: "s", EphemeralKey: "e", CustomerID: "c"}
	backend := &fakeBackend{confirmErr: context.Canceled}
	sheet := newPaymentSheet(backend, "lkr", "pm_card_visa", nil).NewSheet()
	if err := sheet.Initialize(context.Background(), handle, sheetConfig()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	err := sheet.Present(context.Background())
	if errors.Is(err, payments.ErrCanceled) {
		t.Fatalf("transport cancel reported as shopper cancel: %v", err)
	}
	var providerErr *payments.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestCartMetadataFallsBackToCount(t *testing.T) {
	items := make([]payments.LineRef, 0, 40)
	for i := 0; i < 40; i++ {
		items = append(items, payments.LineRef{ID: strings.Repeat("x", 20), Quantity: i + 1})
	}
	if got := cartMetadata(items); got != "40 lines" {
		t.Fatalf("expected count fallback, got %q", got)
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := validateAPIKey(testEnv, "sk_test_abc"); err != nil {
		t.Fatalf("expected test key to pass: %v", err)
	}
	if err := validateAPIKey(testEnv, "sk_live_abc"); err == nil {
		t.Fatal("expected live key in test env to fail")
	}
	if err := validateAPIKey(liveEnv, "rk_live_abc"); err != nil {
		t.Fatalf("expected restricted live key to pass: %v", err)
	}
	if _, err := normalizeEnv("staging"); err == nil {
		t.Fatal("expected unknown env to fail")
	}
}
