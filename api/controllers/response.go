package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/localkart/localkart-backend/pkg/db/models"
)

type orderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	ShopID        uuid.UUID           `json:"shop_id"`
	Status        string              `json:"status"`
	PaymentMode   string              `json:"payment_mode"`
	PaymentStatus string              `json:"payment_status"`
	DeliveryNotes *string             `json:"delivery_notes,omitempty"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	FinalAmount   decimal.Decimal     `json:"final_amount"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:        item.ID,
			ItemID:    item.ItemID,
			Name:      item.Name,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	return orderResponse{
		ID:            order.ID,
		BuyerID:       order.BuyerID,
		ShopID:        order.ShopID,
		Status:        order.Status.String(),
		PaymentMode:   order.PaymentMode.String(),
		PaymentStatus: order.PaymentStatus.String(),
		DeliveryNotes: order.DeliveryNotes,
		TotalAmount:   order.TotalAmount,
		FinalAmount:   order.FinalAmount,
		Items:         items,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}

func toOrderListResponse(orders []models.Order, nextCursor *string) orderListResponse {
	out := orderListResponse{Orders: make([]orderResponse, 0, len(orders)), NextCursor: nextCursor}
	for i := range orders {
		out.Orders = append(out.Orders, toOrderResponse(&orders[i]))
	}
	return out
}

type returnResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ItemID      uuid.UUID `json:"item_id"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason,omitempty"`
	InitiatedBy string    `json:"initiated_by"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toReturnResponse(ret *models.OrderReturn) returnResponse {
	return returnResponse{
		ID:          ret.ID,
		OrderID:     ret.OrderID,
		ItemID:      ret.ItemID,
		Quantity:    ret.Quantity,
		Reason:      ret.Reason,
		InitiatedBy: ret.InitiatedBy.String(),
		Status:      ret.Status.String(),
		CreatedAt:   ret.CreatedAt,
	}
}

type issueResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	IssueType   string    `json:"issue_type"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toIssueResponses(issues []models.OrderIssue) []issueResponse {
	out := make([]issueResponse, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issueResponse{
			ID:          issue.ID,
			OrderID:     issue.OrderID,
			IssueType:   issue.IssueType,
			Description: issue.Description,
			Status:      issue.Status.String(),
			CreatedAt:   issue.CreatedAt,
		})
	}
	return out
}

type messageResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessageResponses(messages []models.OrderMessage) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			ID:        m.ID,
			OrderID:   m.OrderID,
			SenderID:  m.SenderID,
			Message:   m.Message,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

type cartLineResponse struct {
	ItemID          uuid.UUID        `json:"item_id"`
	ShopID          uuid.UUID        `json:"shop_id"`
	Quantity        int              `json:"quantity"`
	PriceAtAddition *decimal.Decimal `json:"price_at_addition,omitempty"`
}

func toCartResponse(lines []models.CartItem) []cartLineResponse {
	out := make([]cartLineResponse, 0, len(lines))
	for _, line := range lines {
		out = append(out, cartLineResponse{
			ItemID:          line.ItemID,
			ShopID:          line.ShopID,
			Quantity:        line.Quantity,
			PriceAtAddition: line.PriceAtAddition,
		})
	}
	return out
}

type walletResponse struct {
	Role    string          `json:"role"`
	Balance decimal.Decimal `json:"balance"`
}

type walletTxnResponse struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Source    *string         `json:"source,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toWalletTxnResponses(txns []models.WalletTransaction) []walletTxnResponse {
	out := make([]walletTxnResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, walletTxnResponse{
			ID:        txn.ID,
			Amount:    txn.Amount,
			Type:      txn.Type.String(),
			Reference: txn.Reference,
			Status:    txn.Status,
			Source:    txn.Source,
			CreatedAt: txn.CreatedAt,
		})
	}
	return out
}
