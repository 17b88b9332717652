package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/teahouse-backend/api/responses"
	"github.com/angelmondragon/teahouse-backend/api/validators"
	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
)

type paymentSheetCreator interface {
	CreatePaymentSheet(ctx context.Context, userID uuid.UUID, req payments.IntentRequest) (payments.Handle, error)
}

type paymentSheetRequest struct {
	Amount    int64              `json:"amount" validate:"required,gt=0"`
	CartItems []payments.LineRef `json:"cart_items" validate:"omitempty,dive"`
}

// PaymentSheet issues a payment intent handle for the amount the client
// computed from its cart.
func PaymentSheet(svc paymentSheetCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentSheetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle, err := svc.CreatePaymentSheet(r.Context(), userID, payments.IntentRequest{
			Amount:    body.Amount,
			CartItems: body.CartItems,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, handle)
	}
}
