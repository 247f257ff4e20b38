package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/api/responses"
	"github.com/localkart/localkart-backend/api/validators"
	"github.com/localkart/localkart-backend/internal/lifecycle"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
)

type checkoutRequest struct {
	ShopID        uuid.UUID `json:"shop_id" validate:"required"`
	PaymentMode   string    `json:"payment_mode" validate:"required"`
	DeliveryNotes *string   `json:"delivery_notes,omitempty" validate:"omitempty,max=500"`
}

// Checkout converts the caller's cart for a shop into an order.
func Checkout(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParsePaymentMode(req.PaymentMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment mode"))
			return
		}

		order, err := service.Checkout(r.Context(), lifecycle.CheckoutInput{
			BuyerID:       a.UserID,
			ShopID:        req.ShopID,
			PaymentMode:   mode,
			DeliveryNotes: req.DeliveryNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}
