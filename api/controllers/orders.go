package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/api/responses"
	"github.com/localkart/localkart-backend/api/validators"
	"github.com/localkart/localkart-backend/internal/lifecycle"
	"github.com/localkart/localkart-backend/internal/orders"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/pagination"
)

func listQueryFromRequest(r *http.Request) (orders.ListOrdersQuery, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return orders.ListOrdersQuery{}, err
	}

	query := orders.ListOrdersQuery{Limit: limit}

	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		cursor, parseErr := pagination.ParseCursor(raw)
		if parseErr != nil {
			return orders.ListOrdersQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid cursor")
		}
		query.Cursor = cursor
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, parseErr := enums.ParseOrderStatus(raw)
		if parseErr != nil {
			return orders.ListOrdersQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter")
		}
		query.Status = &status
	}

	return query, nil
}

func OrderList(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query, err := listQueryFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next, err := service.ListBuyerOrders(r.Context(), a.UserID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderListResponse(page, next))
	}
}

func OrderDetail(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := service.GetOrder(r.Context(), a.UserID, a.Role, a.ShopID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

func OrderConfirmModification(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := service.ConfirmModification(r.Context(), a.UserID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

func OrderCancel(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
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

type returnRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
	Reason   string    `json:"reason" validate:"max=500"`
}

func OrderRequestReturn(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
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

		ret, err := service.RequestReturn(r.Context(), a.UserID, lifecycle.ReturnRequestInput{
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

type ratingRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=1000"`
}

func OrderRate(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req ratingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rating, err := service.RateOrder(r.Context(), a.UserID, orderID, req.Rating, validators.SanitizeString(req.Review, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":     rating.ID,
			"rating": rating.Rating,
			"review": rating.Review,
		})
	}
}

type issueRequest struct {
	IssueType   string `json:"issue_type" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=1000"`
}

func OrderRaiseIssue(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req issueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issue, err := service.RaiseIssue(r.Context(), a.UserID, orderID,
			validators.SanitizeString(req.IssueType, 100),
			validators.SanitizeString(req.Description, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":         issue.ID,
			"issue_type": issue.IssueType,
			"status":     issue.Status.String(),
		})
	}
}

type messageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func OrderSendMessage(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req messageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := service.SendMessage(r.Context(), a.UserID, a.Role, a.ShopID, orderID, validators.SanitizeString(req.Message, 2000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, messageResponse{
			ID:        msg.ID,
			OrderID:   msg.OrderID,
			SenderID:  msg.SenderID,
			Message:   msg.Message,
			CreatedAt: msg.CreatedAt,
		})
	}
}

func OrderListMessages(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		messages, err := service.ListMessages(r.Context(), a.UserID, a.Role, a.ShopID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toMessageResponses(messages))
	}
}

type historyStatusLog struct {
	Status    string    `json:"status"`
	UpdatedBy uuid.UUID `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
}

type historyActionLog struct {
	Action    string    `json:"action"`
	ActorID   uuid.UUID `json:"actor_id"`
	Details   *string   `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	StatusLogs []historyStatusLog `json:"status_logs"`
	ActionLogs []historyActionLog `json:"action_logs"`
	Returns    []returnResponse   `json:"returns"`
}

func OrderHistory(service *lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := service.GetHistory(r.Context(), a.UserID, a.Role, a.ShopID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := historyResponse{
			StatusLogs: make([]historyStatusLog, 0, len(history.StatusLogs)),
			ActionLogs: make([]historyActionLog, 0, len(history.ActionLogs)),
			Returns:    make([]returnResponse, 0, len(history.Returns)),
		}
		for _, log := range history.StatusLogs {
			out.StatusLogs = append(out.StatusLogs, historyStatusLog{
				Status:    log.Status.String(),
				UpdatedBy: log.UpdatedBy,
				CreatedAt: log.CreatedAt,
			})
		}
		for _, log := range history.ActionLogs {
			out.ActionLogs = append(out.ActionLogs, historyActionLog{
				Action:    log.Action.String(),
				ActorID:   log.ActorID,
				Details:   log.Details,
				CreatedAt: log.CreatedAt,
			})
		}
		for i := range history.Returns {
			out.Returns = append(out.Returns, toReturnResponse(&history.Returns[i]))
		}

		responses.WriteSuccess(w, out)
	}
}
