package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/teahouse-backend/internal/cart"
	"github.com/angelmondragon/teahouse-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/angelmondragon/teahouse-backend/pkg/money"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	stepCreateIntent = "create_intent"
	stepInitialize   = "initialize"
	stepAddress      = "address"
	stepPresent      = "present"
	stepPersist      = "persist_order"

	defaultSettleTimeout = 30 * time.Second
)

// Session is a snapshot of the current checkout attempt.
type Session struct {
	Status          Status           `json:"status"`
	CartSnapshot    []cart.LineItem  `json:"cart_snapshot,omitempty"`
	Fingerprint     uint64           `json:"-"`
	Total           decimal.Decimal  `json:"total"`
	AmountMinor     int64            `json:"amount_minor"`
	ShippingAddress string           `json:"shipping_address,omitempty"`
	Handle          *payments.Handle `json:"payment_handle,omitempty"`
	LastOutcome     payments.Outcome `json:"last_outcome,omitempty"`
	OrderID         *uuid.UUID       `json:"order_id,omitempty"`
	LastError       string           `json:"last_error,omitempty"`
	Pending         *PendingOrder    `json:"pending_order,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PendingOrder is a captured payment whose order has not been saved yet.
type PendingOrder struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ShippingAddress string          `json:"shipping_address"`
	Lines           []cart.LineItem `json:"lines"`
	AmountMinor     int64           `json:"amount_minor"`
}

// Result is returned by Pay when the attempt reached a non-error outcome.
type Result struct {
	Outcome payments.Outcome `json:"outcome"`
	OrderID *uuid.UUID       `json:"order_id,omitempty"`
	Amount  int64            `json:"amount_minor"`
}

// Params bundles the orchestrator's collaborators.
type Params struct {
	UserID      uuid.UUID
	Cart        CartSource
	Intents     IntentCreator
	Sheet       Sheet
	Addresses   AddressSource
	Orders      OrderWriter
	Recorder    Recorder
	Logger      *logger.Logger
	SheetConfig payments.SheetConfig
	Now         func() time.Time

	// SettleTimeout bounds the confirm and order write once the sheet is
	// presented. Zero means 30 seconds.
	SettleTimeout time.Duration
}

// Orchestrator drives one shopper's checkout from payment handle to order.
// At most one Prepare or Pay runs at a time.
type Orchestrator struct {
	userID    uuid.UUID
	cart      CartSource
	intents   IntentCreator
	sheet     Sheet
	addresses AddressSource
	orders    OrderWriter
	recorder  Recorder
	logg      *logger.Logger
	sheetCfg  payments.SheetConfig
	now       func() time.Time
	settle    time.Duration

	mu       sync.Mutex
	session  Session
	inFlight bool
	closed   bool
}

func NewOrchestrator(params Params) (*Orchestrator, error) {
	if params.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("intent creator required")
	}
	if params.Sheet == nil {
		return nil, fmt.Errorf("payment sheet required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address source required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order writer required")
	}
	recorder := params.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	settle := params.SettleTimeout
	if settle <= 0 {
		settle = defaultSettleTimeout
	}
	cfg := params.SheetConfig
	if strings.TrimSpace(cfg.MerchantDisplayName) == "" {
		cfg.MerchantDisplayName = "Tea App"
	}
	if cfg.Appearance == (payments.Appearance{}) {
		cfg.Appearance = payments.DefaultAppearance()
	}
	return &Orchestrator{
		userID:    params.UserID,
		cart:      params.Cart,
		intents:   params.Intents,
		sheet:     params.Sheet,
		addresses: params.Addresses,
		orders:    params.Orders,
		recorder:  recorder,
		logg:      logg,
		sheetCfg:  cfg,
		now:       now,
		settle:    settle,
		session:   Session{Status: StatusIdle, UpdatedAt: now()},
	}, nil
}

// Status returns the current session status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Status
}

// Session returns a copy of the current session.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copySession(o.session)
}

// Reset drops the current attempt and returns to Idle.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.inFlight {
		return ErrCheckoutInProgress
	}
	if pending := o.session.Pending; pending != nil {
		o.logg.Warn(o.logg.WithFields(context.Background(), map[string]any{
			"user_id":           o.userID.String(),
			"payment_intent_id": pending.PaymentIntentID,
			"amount_minor":      pending.AmountMinor,
		}), "checkout.pending_order_abandoned")
	}
	o.session = Session{Status: StatusIdle, UpdatedAt: o.now()}
	return nil
}

// Close detaches the orchestrator. Calls still running finish their I/O but
// their results no longer touch the session.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

// Prepare snapshots the cart and obtains an initialized payment handle.
func (o *Orchestrator) Prepare(ctx context.Context) (Session, error) {
	if err := o.begin(); err != nil {
		return Session{}, err
	}
	defer o.end()

	ctx = o.logg.WithUserID(ctx, o.userID.String())
	if o.Session().Pending != nil {
		return o.Session(), ErrOrderPending
	}
	if err := o.prepare(ctx); err != nil {
		return o.Session(), err
	}
	return o.Session(), nil
}

// Pay presents the payment sheet for the prepared handle and records the
// order once the payment succeeds.
func (o *Orchestrator) Pay(ctx context.Context) (*Result, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	ctx = o.logg.WithUserID(ctx, o.userID.String())

	current := o.Session()
	if current.Pending != nil {
		return o.retryPendingOrder(ctx, *current.Pending)
	}
	if current.Handle == nil || (current.Status != StatusReadyToPay && current.Status != StatusCanceled) {
		return nil, ErrNotReady
	}

	if err := o.ensureFresh(ctx, current); err != nil {
		return nil, err
	}
	current = o.Session()

	started := o.now()
	address, err := o.addresses.GetAddress(ctx, o.userID)
	o.recorder.ObserveStep(stepAddress, o.now().Sub(started))
	if err != nil {
		o.logg.Error(ctx, "checkout.address_lookup_failed", err)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch shipping address")
		}
		return nil, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		if current.Status == StatusCanceled {
			if err := o.transition(StatusReadyToPay, nil); err != nil {
				return nil, err
			}
		}
		o.recorder.ObserveOutcome("address_missing")
		return nil, ErrAddressMissing
	}

	if current.Status == StatusCanceled {
		if err := o.transition(StatusReadyToPay, nil); err != nil {
			return nil, err
		}
	}
	current, err = o.startPresenting(ctx, address)
	if err != nil {
		return nil, err
	}

	// From here on the shopper's request may go away; the confirm and the
	// order write still run to the end.
	settleCtx, cancel := o.settleContext(ctx)
	defer cancel()

	started = o.now()
	presentErr := o.sheet.Present(settleCtx)
	o.recorder.ObserveStep(stepPresent, o.now().Sub(started))

	switch {
	case presentErr == nil:
		return o.completeOrder(settleCtx, pendingFrom(current))
	case errors.Is(presentErr, payments.ErrCanceled):
		if err := o.transition(StatusCanceled, func(s *Session) { s.LastOutcome = payments.OutcomeCanceled }); err != nil {
			return nil, err
		}
		if err := o.transition(StatusReadyToPay, nil); err != nil {
			return nil, err
		}
		o.recorder.ObserveOutcome(string(payments.OutcomeCanceled))
		o.logg.Info(ctx, "checkout.canceled")
		return &Result{Outcome: payments.OutcomeCanceled, Amount: current.AmountMinor}, nil
	default:
		message := providerMessage(presentErr)
		if err := o.transition(StatusFailed, func(s *Session) {
			s.LastOutcome = payments.OutcomeFailed
			s.LastError = message
			s.Handle = nil
		}); err != nil {
			return nil, err
		}
		o.recorder.ObserveOutcome("declined")
		o.logg.Warn(o.logg.WithField(ctx, "provider_message", message), "checkout.payment_declined")
		return nil, paymentDeclined(message, presentErr)
	}
}

// startPresenting enters Presenting for the current handle. A cart that moved
// since the handle was issued gets one fresh prepare.
func (o *Orchestrator) startPresenting(ctx context.Context, address string) (Session, error) {
	current, err := o.enterPresenting(address)
	if !errors.Is(err, ErrStalePaymentHandle) {
		return current, err
	}
	o.logg.Info(ctx, "checkout.handle_stale")
	if err := o.prepare(ctx); err != nil {
		return Session{}, err
	}
	current, err = o.enterPresenting(address)
	if errors.Is(err, ErrStalePaymentHandle) {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart changed during checkout")
	}
	return current, err
}

// enterPresenting checks the handle against the live cart and moves to
// Presenting in the same critical section.
func (o *Orchestrator) enterPresenting(address string) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return Session{}, ErrClosed
	}
	if o.session.Handle == nil || o.session.Fingerprint != o.cart.Fingerprint() {
		return Session{}, ErrStalePaymentHandle
	}
	if err := o.moveLocked(StatusPresenting, func(s *Session) {
		s.ShippingAddress = address
		s.LastOutcome = ""
		s.LastError = ""
	}); err != nil {
		return Session{}, err
	}
	return copySession(o.session), nil
}

func (o *Orchestrator) retryPendingOrder(ctx context.Context, pending PendingOrder) (*Result, error) {
	o.logg.Info(o.logg.WithField(ctx, "payment_intent_id", pending.PaymentIntentID), "checkout.order_retry")
	settleCtx, cancel := o.settleContext(ctx)
	defer cancel()
	return o.completeOrder(settleCtx, pending)
}

func (o *Orchestrator) settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.settle)
}

func (o *Orchestrator) completeOrder(ctx context.Context, pending PendingOrder) (*Result, error) {
	started := o.now()
	order, err := o.orders.PlaceOrder(ctx, orders.PlaceOrderInput{
		ProfileID:       o.userID,
		ShippingAddress: pending.ShippingAddress,
		PaymentIntentID: pending.PaymentIntentID,
		Lines:           OrderLines(pending.Lines, o.cart.Pricing()),
	})
	o.recorder.ObserveStep(stepPersist, o.now().Sub(started))
	if err != nil {
		o.logg.Error(o.logg.WithFields(ctx, map[string]any{
			"payment_intent_id": pending.PaymentIntentID,
			"amount_minor":      pending.AmountMinor,
		}), "checkout.order_persistence_failed", err)
		if tErr := o.holdPending(pending); tErr != nil && !errors.Is(tErr, ErrClosed) {
			return nil, tErr
		}
		o.recorder.ObserveOutcome("order_failed")
		return nil, orderPersistenceFailed(pending.PaymentIntentID, err)
	}

	// Paid lines leave the cart even after Close. Units added while the
	// sheet was open stay.
	o.cart.RemovePaid(pending.Lines)

	orderID := order.ID
	if err := o.transition(StatusSucceeded, func(s *Session) {
		s.LastOutcome = payments.OutcomeSucceeded
		s.LastError = ""
		s.OrderID = &orderID
		s.Handle = nil
		s.Pending = nil
	}); err != nil && !errors.Is(err, ErrClosed) {
		return nil, err
	}
	o.recorder.ObserveOutcome(string(payments.OutcomeSucceeded))
	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"order_id":     orderID.String(),
		"amount_minor": pending.AmountMinor,
	}), "checkout.succeeded")
	return &Result{Outcome: payments.OutcomeSucceeded, OrderID: &orderID, Amount: pending.AmountMinor}, nil
}

// holdPending parks a captured payment in Failed until its order is saved.
func (o *Orchestrator) holdPending(pending PendingOrder) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.session.Status != StatusFailed {
		if err := o.moveLocked(StatusFailed, nil); err != nil {
			return err
		}
	}
	held := pending
	held.Lines = append([]cart.LineItem(nil), pending.Lines...)
	o.session.Pending = &held
	o.session.LastOutcome = payments.OutcomeSucceeded
	o.session.LastError = "payment captured but the order was not saved"
	o.session.Handle = nil
	o.session.UpdatedAt = o.now()
	return nil
}

// ensureFresh re-runs prepare when the cart changed after the handle was issued.
func (o *Orchestrator) ensureFresh(ctx context.Context, current Session) error {
	if err := o.checkHandle(current); err == nil {
		return nil
	}
	o.logg.Info(ctx, "checkout.handle_stale")
	return o.prepare(ctx)
}

func (o *Orchestrator) checkHandle(current Session) error {
	if current.Handle == nil || current.Fingerprint != o.cart.Fingerprint() {
		return ErrStalePaymentHandle
	}
	return nil
}

func (o *Orchestrator) prepare(ctx context.Context) error {
	items := o.cart.Items()
	if len(items) == 0 {
		current := o.Session()
		if current.Status == StatusReadyToPay || current.Status == StatusCanceled {
			_ = o.transition(StatusIdle, func(s *Session) {
				s.Handle = nil
				s.CartSnapshot = nil
			})
		}
		return ErrEmptyCart
	}

	pricing := o.cart.Pricing()
	total := decimal.Zero
	refs := make([]payments.LineRef, 0, len(items))
	for _, item := range items {
		total = total.Add(pricing.Detail(item).DiscountedTotal)
		refs = append(refs, payments.LineRef{ID: item.ID, Quantity: item.Quantity})
	}
	amount := money.ToMinorUnits(total)
	fingerprint := cart.Fingerprint(items)

	if err := o.transition(StatusInitializing, func(s *Session) {
		s.CartSnapshot = items
		s.Fingerprint = fingerprint
		s.Total = total
		s.AmountMinor = amount
		s.Handle = nil
		s.OrderID = nil
		s.LastOutcome = ""
		s.LastError = ""
	}); err != nil {
		return err
	}

	started := o.now()
	handle, err := o.intents.CreatePaymentSheet(ctx, o.userID, payments.IntentRequest{Amount: amount, CartItems: refs})
	o.recorder.ObserveStep(stepCreateIntent, o.now().Sub(started))
	if err == nil && !handle.Valid() {
		err = errors.New("provider returned an incomplete payment handle")
	}
	if err != nil {
		return o.failInitialization(ctx, err)
	}

	started = o.now()
	err = o.sheet.Initialize(ctx, handle, o.sheetCfg)
	o.recorder.ObserveStep(stepInitialize, o.now().Sub(started))
	if err != nil {
		return o.failInitialization(ctx, err)
	}

	if err := o.transition(StatusReadyToPay, func(s *Session) {
		h := handle
		s.Handle = &h
	}); err != nil {
		return err
	}
	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"amount_minor": amount,
		"lines":        len(items),
	}), "checkout.ready_to_pay")
	return nil
}

func (o *Orchestrator) failInitialization(ctx context.Context, cause error) error {
	if err := o.transition(StatusFailed, func(s *Session) {
		s.LastOutcome = ""
		s.LastError = cause.Error()
	}); err != nil {
		return err
	}
	o.recorder.ObserveOutcome("initialization_failed")
	o.logg.Warn(o.logg.WithField(ctx, "error", cause.Error()), "checkout.initialization_failed")
	return initializationFailed(cause)
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.inFlight {
		return ErrCheckoutInProgress
	}
	o.inFlight = true
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false
}

// transition moves the session to next and applies mutate under the lock.
// It refuses once the orchestrator is closed.
func (o *Orchestrator) transition(next Status, mutate func(*Session)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	return o.moveLocked(next, mutate)
}

func (o *Orchestrator) moveLocked(next Status, mutate func(*Session)) error {
	if !o.session.Status.CanTransitionTo(next) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNotReady, fmt.Sprintf("cannot move checkout from %s to %s", o.session.Status, next)).
			WithDetails(map[string]any{"from": o.session.Status, "to": next})
	}
	o.session.Status = next
	if mutate != nil {
		mutate(&o.session)
	}
	o.session.UpdatedAt = o.now()
	return nil
}

func copySession(s Session) Session {
	out := s
	if s.CartSnapshot != nil {
		out.CartSnapshot = append([]cart.LineItem(nil), s.CartSnapshot...)
	}
	if s.Handle != nil {
		h := *s.Handle
		out.Handle = &h
	}
	if s.OrderID != nil {
		id := *s.OrderID
		out.OrderID = &id
	}
	if s.Pending != nil {
		p := *s.Pending
		p.Lines = append([]cart.LineItem(nil), s.Pending.Lines...)
		out.Pending = &p
	}
	return out
}

func pendingFrom(s Session) PendingOrder {
	intentID := ""
	if s.Handle != nil {
		intentID = s.Handle.PaymentIntentID
	}
	return PendingOrder{
		PaymentIntentID: intentID,
		ShippingAddress: s.ShippingAddress,
		Lines:           s.CartSnapshot,
		AmountMinor:     s.AmountMinor,
	}
}

func providerMessage(err error) string {
	var providerErr *payments.ProviderError
	if errors.As(err, &providerErr) && providerErr.Message != "" {
		return providerErr.Message
	}
	return err.Error()
}
