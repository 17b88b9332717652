package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/teahouse-backend/api/responses"
	"github.com/angelmondragon/teahouse-backend/api/validators"
	"github.com/angelmondragon/teahouse-backend/internal/cart"
	product "github.com/angelmondragon/teahouse-backend/internal/products"
	"github.com/angelmondragon/teahouse-backend/internal/shopper"
	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
)

// SessionProvider resolves the signed-in user's cart and checkout session.
type SessionProvider interface {
	Get(ctx context.Context, userID uuid.UUID) (*shopper.Session, error)
}

type productLookup interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*product.ProductDTO, error)
}

type cartResponse struct {
	Items     []cart.DetailedItem `json:"items"`
	ItemCount int                 `json:"item_count"`
	Total     decimal.Decimal     `json:"total"`
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

func newCartResponse(store *cart.Store) cartResponse {
	return cartResponse{
		Items:     store.DetailedItems(),
		ItemCount: store.Len(),
		Total:     store.Total(),
	}
}

func sessionFromRequest(r *http.Request, sessions SessionProvider) (*shopper.Session, error) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		return nil, err
	}
	sess, err := sessions.Get(r.Context(), userID)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shopper session")
	}
	return sess, nil
}

// CartGet returns the cart lines with their derived discounts and the total.
func CartGet(sessions SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}

// CartClear empties the cart.
func CartClear(sessions SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess.Cart.Clear()
		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}

// CartAddItem adds one unit of an active catalog product at its current price.
func CartAddItem(sessions SessionProvider, products productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil || products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := products.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price := listing.Price
		sess.Cart.AddItem(cart.Product{
			ID:    listing.ID.String(),
			Name:  listing.ProductName,
			Price: &price,
		})
		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}

// CartRemoveItem drops a line regardless of its quantity.
func CartRemoveItem(sessions SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartLineMutation(sessions, logg, (*cart.Store).RemoveItem)
}

func CartIncrementItem(sessions SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartLineMutation(sessions, logg, (*cart.Store).IncrementQuantity)
}

// CartDecrementItem lowers a line's quantity; it never drops below one.
func CartDecrementItem(sessions SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartLineMutation(sessions, logg, (*cart.Store).DecrementQuantity)
}

func cartLineMutation(sessions SessionProvider, logg *logger.Logger, mutate func(*cart.Store, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		itemID := strings.TrimSpace(chi.URLParam(r, "itemId"))
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id is required"))
			return
		}

		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mutate(sess.Cart, itemID)
		responses.WriteSuccess(w, newCartResponse(sess.Cart))
	}
}
