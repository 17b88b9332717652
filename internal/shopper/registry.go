// Package shopper keeps one cart and one checkout orchestrator per signed-in
// user for the lifetime of the process.
package shopper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/teahouse-backend/internal/auth"
	"github.com/angelmondragon/teahouse-backend/internal/cart"
	"github.com/angelmondragon/teahouse-backend/internal/checkout"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
)

const teardownTimeout = 5 * time.Second

// Session is the per-user state the HTTP layer works against.
type Session struct {
	UserID   uuid.UUID
	Cart     *cart.Store
	Checkout *checkout.Orchestrator
}

// Params bundles the collaborators shared by every shopper session.
type Params struct {
	KV          cart.KV
	KeyFor      func(userID uuid.UUID) string
	Pricing     cart.Pricing
	Intents     checkout.IntentCreator
	NewSheet    func() checkout.Sheet
	Addresses   checkout.AddressSource
	Orders      checkout.OrderWriter
	Recorder    checkout.Recorder
	Observer    cart.PersistObserver
	SheetConfig payments.SheetConfig
	Logger      *logger.Logger
}

// Registry hands out per-user sessions, hydrating the cart from durable
// storage the first time a user is seen.
type Registry struct {
	params Params
	logg   *logger.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool
}

func NewRegistry(params Params) (*Registry, error) {
	if params.Intents == nil {
		return nil, fmt.Errorf("intent creator required")
	}
	if params.NewSheet == nil {
		return nil, fmt.Errorf("sheet factory required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address source required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if params.KeyFor == nil {
		params.KeyFor = func(userID uuid.UUID) string {
			return userID.String() + ":" + cart.DefaultStorageKey
		}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Registry{
		params:   params,
		logg:     logg,
		sessions: make(map[uuid.UUID]*Session),
	}, nil
}

// Get returns the user's session, creating and hydrating it on first use.
func (r *Registry) Get(ctx context.Context, userID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, checkout.ErrClosed
	}
	if existing, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.mu.Unlock()

	created, err := r.build(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[userID]; ok {
		created.Checkout.Close()
		_ = created.Cart.Close(ctx)
		return existing, nil
	}
	if r.closed {
		created.Checkout.Close()
		_ = created.Cart.Close(ctx)
		return nil, checkout.ErrClosed
	}
	r.sessions[userID] = created
	return created, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SignOut tears the user's session down: the orchestrator is closed and the
// cart is emptied in memory and in durable storage.
func (r *Registry) SignOut(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	sess, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	ctx = r.logg.WithUserID(ctx, userID.String())
	if !ok {
		if r.params.KV == nil {
			return nil
		}
		return r.params.KV.Remove(ctx, r.params.KeyFor(userID))
	}

	sess.Checkout.Close()
	err := multierr.Combine(
		sess.Cart.ClearAndPersist(ctx),
		sess.Cart.Close(ctx),
	)
	if err != nil {
		r.logg.Error(ctx, "shopper.sign_out_teardown_failed", err)
		return err
	}
	r.logg.Info(ctx, "shopper.signed_out")
	return nil
}

// HandleSessionEvent reacts to auth session changes. Subscribe it with
// auth.Service.OnSessionChange.
func (r *Registry) HandleSessionEvent(event auth.SessionEvent) {
	if event.Type != auth.SessionSignedOut {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	_ = r.SignOut(ctx, event.UserID)
}

// Close detaches every session and drains pending cart writes. Carts are
// kept in durable storage.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	var err error
	for _, sess := range sessions {
		sess.Checkout.Close()
		err = multierr.Append(err, sess.Cart.Close(ctx))
	}
	return err
}

func (r *Registry) build(ctx context.Context, userID uuid.UUID) (*Session, error) {
	store := cart.NewStore(cart.Options{
		KV:         r.params.KV,
		StorageKey: r.params.KeyFor(userID),
		Pricing:    r.params.Pricing,
		Logger:     r.logg,
		Observer:   r.params.Observer,
	})
	store.Load(r.logg.WithUserID(ctx, userID.String()))

	orchestrator, err := checkout.NewOrchestrator(checkout.Params{
		UserID:      userID,
		Cart:        store,
		Intents:     r.params.Intents,
		Sheet:       r.params.NewSheet(),
		Addresses:   r.params.Addresses,
		Orders:      r.params.Orders,
		Recorder:    r.params.Recorder,
		Logger:      r.logg,
		SheetConfig: r.params.SheetConfig,
	})
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return &Session{UserID: userID, Cart: store, Checkout: orchestrator}, nil
}
