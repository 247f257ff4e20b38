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

func VendorOrderList(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query, err := listQueryFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next, err := service.ListShopOrders(r.Context(), a.ShopID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderListResponse(page, next))
	}
}

type vendorStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// VendorOrderStatus moves an order to accepted, rejected or delivered.
func VendorOrderStatus(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req vendorStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := service.UpdateStatus(r.Context(), a.UserID, a.ShopID, orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

type modifyItemRequest struct {
	OrderItemID uuid.UUID `json:"order_item_id" validate:"required"`
	NewQuantity int       `json:"new_quantity" validate:"min=0"`
}

type vendorModifyRequest struct {
	Items []modifyItemRequest `json:"items" validate:"required,min=1,dive"`
}

func VendorOrderModify(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req vendorModifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mods := make([]lifecycle.ItemModification, 0, len(req.Items))
		for _, item := range req.Items {
			mods = append(mods, lifecycle.ItemModification{
				OrderItemID: item.OrderItemID,
				NewQuantity: item.NewQuantity,
			})
		}

		order, err := service.VendorModify(r.Context(), a.UserID, a.ShopID, orderID, mods)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

func VendorOrderCancel(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := service.Cancel(r.Context(), a.UserID, a.Role, a.ShopID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// VendorOrderIssues lists the buyer complaints filed against an order.
func VendorOrderIssues(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issues, err := service.ListIssues(r.Context(), a.UserID, a.ShopID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toIssueResponses(issues))
	}
}

// VendorOrderInitiateReturn opens a pre-accepted return on the vendor's own
// initiative, skipping buyer approval.
func VendorOrderInitiateReturn(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req returnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := service.VendorInitiateReturn(r.Context(), a.UserID, a.ShopID, lifecycle.ReturnRequestInput{
			OrderID:  orderID,
			ItemID:   req.ItemID,
			Quantity: req.Quantity,
			Reason:   validators.SanitizeString(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toReturnResponse(ret))
	}
}

type returnDecisionRequest struct {
	ReturnID uuid.UUID `json:"return_id" validate:"required"`
}

type returnDecision func(s *lifecycle.Service, r *http.Request, a actor, orderID, returnID uuid.UUID) (any, error)

func vendorReturnHandler(service *lifecycle.Service, logg *logger.Logger, decide returnDecision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req returnDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := decide(service, r, a, orderID, req.ReturnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

func VendorReturnAccept(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorReturnHandler(service, logg, func(s *lifecycle.Service, r *http.Request, a actor, orderID, returnID uuid.UUID) (any, error) {
		ret, err := s.AcceptReturn(r.Context(), a.UserID, a.ShopID, orderID, returnID)
		if err != nil {
			return nil, err
		}
		return toReturnResponse(ret), nil
	})
}

func VendorReturnReject(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorReturnHandler(service, logg, func(s *lifecycle.Service, r *http.Request, a actor, orderID, returnID uuid.UUID) (any, error) {
		ret, err := s.RejectReturn(r.Context(), a.UserID, a.ShopID, orderID, returnID)
		if err != nil {
			return nil, err
		}
		return toReturnResponse(ret), nil
	})
}

func VendorReturnComplete(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorReturnHandler(service, logg, func(s *lifecycle.Service, r *http.Request, a actor, orderID, returnID uuid.UUID) (any, error) {
		ret, err := s.CompleteReturn(r.Context(), a.UserID, a.ShopID, orderID, returnID)
		if err != nil {
			return nil, err
		}
		return toReturnResponse(ret), nil
	})
}
