package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/internal/cart"
	"github.com/localkart/localkart-backend/internal/inventory"
	"github.com/localkart/localkart-backend/internal/orders"
	"github.com/localkart/localkart-backend/internal/wallet"
	"github.com/localkart/localkart-backend/pkg/db"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/metrics"
	"github.com/localkart/localkart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the lifecycle service.
type ServiceParams struct {
	Orders  orders.Repository
	Wallet  *wallet.Service
	Stock   *inventory.Guard
	Cart    *cart.Service
	Tx      txRunner
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
}

// Service drives the order state machine. Every operation runs in a single
// database transaction; wallet movements and stock changes commit or roll
// back together with the order mutation that caused them.
//
// Lock order inside a transaction is always: the order row first (when it
// exists), then item rows (ascending id), then buyer wallet, then vendor
// wallet. Checkout has no order row yet and starts at the item rows.
type Service struct {
	orders  orders.Repository
	wallet  *wallet.Service
	stock   *inventory.Guard
	cart    *cart.Service
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// NewService builds an order lifecycle service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.Wallet == nil {
		return nil, errors.New("wallet service is required")
	}
	if params.Stock == nil {
		return nil, errors.New("inventory guard is required")
	}
	if params.Cart == nil {
		return nil, errors.New("cart service is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	return &Service{
		orders:  params.Orders,
		wallet:  params.Wallet,
		stock:   params.Stock,
		cart:    params.Cart,
		tx:      params.Tx,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// CheckoutInput captures a buyer checkout of their cart for one shop.
type CheckoutInput struct {
	BuyerID       uuid.UUID
	ShopID        uuid.UUID
	PaymentMode   enums.PaymentMode
	DeliveryNotes *string
}

// Checkout converts the buyer's cart for a shop into an order. Stock is
// locked and decremented first, wallet payments debit the buyer before the
// order row exists, and the cart is cleared last. Any failure rolls the
// whole thing back, stock and wallet included.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	defer s.observe("checkout")()
	if input.BuyerID == uuid.Nil || input.ShopID == uuid.Nil {
		return nil, s.reject("checkout", pkgerrors.New(pkgerrors.CodeValidation, "buyer and shop ids required"))
	}
	if !input.PaymentMode.IsValid() {
		return nil, s.reject("checkout", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment mode %q", input.PaymentMode)))
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		snapshot, err := s.cart.Snapshot(ctx, tx, input.BuyerID, input.ShopID)
		if err != nil {
			return err
		}

		lines := make([]inventory.Line, 0, len(snapshot))
		for _, line := range snapshot {
			if line.Item.ShopID != input.ShopID {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart line does not belong to shop")
			}
			lines = append(lines, inventory.Line{ItemID: line.Item.ID, Quantity: line.Quantity})
		}
		reserved, err := s.stock.Reserve(ctx, tx, lines)
		if err != nil {
			return err
		}

		// price from the locked rows, not the pre-lock snapshot
		locked := make(map[uuid.UUID]models.Item, len(reserved))
		for _, item := range reserved {
			locked[item.ID] = item
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(snapshot))
		for _, line := range snapshot {
			item, ok := locked[line.Item.ID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart references a missing item")
			}
			subtotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, models.OrderItem{
				ItemID:    item.ID,
				Name:      item.Title,
				Unit:      item.Unit,
				UnitPrice: item.Price,
				Quantity:  line.Quantity,
				Subtotal:  subtotal,
			})
			total = total.Add(subtotal)
		}

		orderID := uuid.New()
		paymentStatus := enums.PaymentStatusUnpaid
		if input.PaymentMode == enums.PaymentModeWallet {
			if _, err := s.wallet.Adjust(ctx, tx, wallet.AdjustInput{
				OwnerID:   input.BuyerID,
				Role:      enums.WalletRoleConsumer,
				Delta:     total.Neg(),
				Type:      enums.WalletTxnTypeDebit,
				Reference: paymentReference(orderID),
			}); err != nil {
				return err
			}
			paymentStatus = enums.PaymentStatusPaid
		}

		order = &models.Order{
			ID:            orderID,
			BuyerID:       input.BuyerID,
			ShopID:        input.ShopID,
			Status:        enums.OrderStatusPending,
			PaymentMode:   input.PaymentMode,
			PaymentStatus: paymentStatus,
			DeliveryNotes: input.DeliveryNotes,
			TotalAmount:   total,
			FinalAmount:   total,
			Items:         items,
		}

		repo := s.orders.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}
		if err := s.cart.Clear(ctx, tx, input.BuyerID, input.ShopID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: orderID, Status: enums.OrderStatusPending, UpdatedBy: input.BuyerID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		return s.logAction(ctx, repo, orderID, enums.OrderActionCreated, input.BuyerID, nil)
	})
	if err != nil {
		return nil, s.reject("checkout", err)
	}

	s.metrics.IncOperation("checkout")
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order created")
	}
	return order, nil
}

// ItemModification changes one line of an order; NewQuantity zero removes it.
type ItemModification struct {
	OrderItemID uuid.UUID
	NewQuantity int
}

// VendorModify lets the vendor shrink an order before fulfilment (out of
// stock at the counter, partial availability). The order moves to
// awaiting_consumer_confirmation; no money moves until the buyer confirms.
func (s *Service) VendorModify(ctx context.Context, vendorID, shopID, orderID uuid.UUID, mods []ItemModification) (*models.Order, error) {
	defer s.observe("vendor_modify")()
	if len(mods) == 0 {
		return nil, s.reject("vendor_modify", pkgerrors.New(pkgerrors.CodeValidation, "no modifications supplied"))
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		var err error
		order, err = s.lockVendorOrder(ctx, repo, shopID, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsClosed() || order.Status == enums.OrderStatusAwaitingConsumerConfirmation {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be modified in its current state")
		}

		byID := make(map[uuid.UUID]*models.OrderItem, len(order.Items))
		for i := range order.Items {
			byID[order.Items[i].ID] = &order.Items[i]
		}

		var notes []string
		for _, mod := range mods {
			item, ok := byID[mod.OrderItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			if mod.NewQuantity < 0 || mod.NewQuantity > item.Quantity {
				return pkgerrors.New(pkgerrors.CodeValidation, "modified quantity must be between zero and the ordered quantity")
			}
			if mod.NewQuantity == 0 {
				if err := repo.DeleteItem(ctx, orderID, item.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing order item")
				}
				notes = append(notes, fmt.Sprintf("%s removed", item.Name))
				continue
			}
			item.Quantity = mod.NewQuantity
			item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(mod.NewQuantity)))
			if err := repo.SaveItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order item")
			}
			notes = append(notes, fmt.Sprintf("%s x%d", item.Name, mod.NewQuantity))
		}

		newTotal, err := repo.SumItems(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing order items")
		}
		if newTotal.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "modification would empty the order; cancel instead")
		}

		order.FinalAmount = newTotal
		order.Status = enums.OrderStatusAwaitingConsumerConfirmation
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: orderID, Status: order.Status, UpdatedBy: vendorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		if err := repo.CreateMessage(ctx, &models.OrderMessage{
			OrderID:  orderID,
			SenderID: vendorID,
			Message:  "Order modified. Awaiting your confirmation.",
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating message")
		}
		details := strings.Join(notes, ", ")
		return s.logAction(ctx, repo, orderID, enums.OrderActionVendorModified, vendorID, &details)
	})
	if err != nil {
		return nil, s.reject("vendor_modify", err)
	}

	s.metrics.IncOperation("vendor_modify")
	return s.reload(ctx, orderID)
}

// ConfirmModification is the buyer accepting a vendor modification. The
// difference between what was paid and the new total is refunded to the
// buyer's wallet, and the reduced total becomes the order total.
func (s *Service) ConfirmModification(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	defer s.observe("confirm_modification")()
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		var err error
		order, err = s.lockBuyerOrder(ctx, repo, buyerID, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusAwaitingConsumerConfirmation {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no pending modification")
		}

		delta := order.TotalAmount.Sub(order.FinalAmount)
		if delta.IsPositive() && s.isWalletPaid(order) {
			if _, err := s.wallet.Adjust(ctx, tx, wallet.AdjustInput{
				OwnerID:   order.BuyerID,
				Role:      enums.WalletRoleConsumer,
				Delta:     delta,
				Type:      enums.WalletTxnTypeRefund,
				Reference: refundReference(orderID),
			}); err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusPartiallyRefunded
		}

		order.TotalAmount = order.FinalAmount
		order.Status = enums.OrderStatusConfirmed
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: orderID, Status: order.Status, UpdatedBy: buyerID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		details := fmt.Sprintf("refunded %s", delta.StringFixed(2))
		return s.logAction(ctx, repo, orderID, enums.OrderActionModificationConfirmed, buyerID, &details)
	})
	if err != nil {
		return nil, s.reject("confirm_modification", err)
	}

	s.metrics.IncOperation("confirm_modification")
	return order, nil
}

// Cancel cancels an open order. Wallet payments are refunded in full; the
// refund is whatever is still paid, so a confirmed modification does not
// double-refund. Consumers may only cancel their own orders, vendors only
// orders of their shop.
func (s *Service) Cancel(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, shopID, orderID uuid.UUID) (*models.Order, error) {
	defer s.observe("cancel")()
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		var err error
		switch role {
		case enums.ActorRoleConsumer:
			order, err = s.lockBuyerOrder(ctx, repo, actorID, orderID)
		case enums.ActorRoleVendor:
			order, err = s.lockVendorOrder(ctx, repo, shopID, orderID)
		default:
			return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot cancel orders")
		}
		if err != nil {
			return err
		}
		if order.Status.IsClosed() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already closed")
		}

		if s.isWalletPaid(order) && order.TotalAmount.IsPositive() {
			if _, err := s.wallet.Adjust(ctx, tx, wallet.AdjustInput{
				OwnerID:   order.BuyerID,
				Role:      enums.WalletRoleConsumer,
				Delta:     order.TotalAmount,
				Type:      enums.WalletTxnTypeRefund,
				Reference: refundReference(orderID),
			}); err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusRefunded
		}

		order.Status = enums.OrderStatusCancelled
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: orderID, Status: order.Status, UpdatedBy: actorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		details := fmt.Sprintf("cancelled by %s", role)
		return s.logAction(ctx, repo, orderID, enums.OrderActionCancelled, actorID, &details)
	})
	if err != nil {
		return nil, s.reject("cancel", err)
	}

	s.metrics.IncOperation("cancel")
	return order, nil
}

// UpdateStatus moves the order through vendor-driven states. Delivery of a
// wallet-paid order settles the vendor: the authoritative total is credited
// to the vendor wallet in the same transaction. Rejection refunds the buyer
// like a cancellation. Closed orders reject any further update, including a
// repeated delivered.
func (s *Service) UpdateStatus(ctx context.Context, vendorID, shopID, orderID uuid.UUID, newStatus enums.OrderStatus) (*models.Order, error) {
	defer s.observe("update_status")()
	if !newStatus.IsValid() {
		return nil, s.reject("update_status", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", newStatus)))
	}
	switch newStatus {
	case enums.OrderStatusAccepted, enums.OrderStatusRejected, enums.OrderStatusDelivered:
	default:
		return nil, s.reject("update_status", pkgerrors.New(pkgerrors.CodeValidation, "vendors may only set accepted, rejected or delivered"))
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		var err error
		order, err = s.lockVendorOrder(ctx, repo, shopID, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsClosed() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already closed")
		}
		if order.Status == enums.OrderStatusAwaitingConsumerConfirmation {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is awaiting consumer confirmation")
		}

		switch newStatus {
		case enums.OrderStatusDelivered:
			if s.isWalletPaid(order) {
				if _, err := s.wallet.Adjust(ctx, tx, wallet.AdjustInput{
					OwnerID:   order.ShopID,
					Role:      enums.WalletRoleVendor,
					Delta:     order.FinalAmount,
					Type:      enums.WalletTxnTypeCredit,
					Reference: settlementReference(orderID),
				}); err != nil {
					return err
				}
			}
		case enums.OrderStatusRejected:
			if s.isWalletPaid(order) && order.TotalAmount.IsPositive() {
				if _, err := s.wallet.Adjust(ctx, tx, wallet.AdjustInput{
					OwnerID:   order.BuyerID,
					Role:      enums.WalletRoleConsumer,
					Delta:     order.TotalAmount,
					Type:      enums.WalletTxnTypeRefund,
					Reference: refundReference(orderID),
				}); err != nil {
					return err
				}
				order.PaymentStatus = enums.PaymentStatusRefunded
			}
		}

		order.Status = newStatus
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: orderID, Status: newStatus, UpdatedBy: vendorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		details := string(newStatus)
		return s.logAction(ctx, repo, orderID, enums.OrderActionStatusUpdated, vendorID, &details)
	})
	if err != nil {
		return nil, s.reject("update_status", err)
	}

	s.metrics.IncOperation("update_status")
	return order, nil
}

// ReturnRequestInput captures a return of part of a delivered order.
type ReturnRequestInput struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Quantity int
	Reason   string
}

// RequestReturn opens a consumer return for a delivered order line.
func (s *Service) RequestReturn(ctx context.Context, buyerID uuid.UUID, input ReturnRequestInput) (*models.OrderReturn, error) {
	defer s.observe("request_return")()
	ret, err := s.openReturn(ctx, buyerID, enums.ReturnInitiatorConsumer, input)
	if err != nil {
		return nil, s.reject("request_return", err)
	}
	s.metrics.IncOperation("request_return")
	return ret, nil
}

// VendorInitiateReturn opens a vendor-forced return, already accepted: the
// vendor is declaring the goods came back and does not need to approve their
// own request.
func (s *Service) VendorInitiateReturn(ctx context.Context, vendorID, shopID uuid.UUID, input ReturnRequestInput) (*models.OrderReturn, error) {
	defer s.observe("vendor_initiate_return")()
	var ret *models.OrderReturn
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.lockVendorOrder(ctx, repo, shopID, input.OrderID)
		if err != nil {
			return err
		}
		ret, err = s.createReturn(ctx, repo, order, enums.ReturnInitiatorVendor, enums.ReturnStatusAccepted, input)
		if err != nil {
			return err
		}
		order.Status = enums.OrderStatusReturnAccepted
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: order.ID, Status: order.Status, UpdatedBy: vendorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		return s.logAction(ctx, repo, order.ID, enums.OrderActionVendorForcedReturn, vendorID, &input.Reason)
	})
	if err != nil {
		return nil, s.reject("vendor_initiate_return", err)
	}
	s.metrics.IncOperation("vendor_initiate_return")
	return ret, nil
}

func (s *Service) openReturn(ctx context.Context, buyerID uuid.UUID, initiator enums.ReturnInitiator, input ReturnRequestInput) (*models.OrderReturn, error) {
	var ret *models.OrderReturn
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.lockBuyerOrder(ctx, repo, buyerID, input.OrderID)
		if err != nil {
			return err
		}
		ret, err = s.createReturn(ctx, repo, order, initiator, enums.ReturnStatusRequested, input)
		if err != nil {
			return err
		}
		return s.logAction(ctx, repo, order.ID, enums.OrderActionReturnRequested, buyerID, &input.Reason)
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) createReturn(ctx context.Context, repo orders.Repository, order *models.Order, initiator enums.ReturnInitiator, status enums.ReturnStatus, input ReturnRequestInput) (*models.OrderReturn, error) {
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "returns are only allowed after delivery")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity must be positive")
	}

	var line *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ItemID == input.ItemID {
			line = &order.Items[i]
			break
		}
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item is not part of the order")
	}
	if input.Quantity > line.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity exceeds ordered quantity")
	}

	ret := &models.OrderReturn{
		OrderID:     order.ID,
		ItemID:      input.ItemID,
		Quantity:    input.Quantity,
		Reason:      input.Reason,
		InitiatedBy: initiator,
		Status:      status,
	}
	if err := repo.CreateReturn(ctx, ret); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating return")
	}
	return ret, nil
}

// AcceptReturn moves a requested return to accepted and parks the order in
// return_accepted until the goods come back.
func (s *Service) AcceptReturn(ctx context.Context, vendorID, shopID, orderID, returnID uuid.UUID) (*models.OrderReturn, error) {
	defer s.observe("accept_return")()
	var ret *models.OrderReturn
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.lockVendorOrder(ctx, repo, shopID, orderID)
		if err != nil {
			return err
		}
		ret, err = s.loadReturn(ctx, repo, orderID, returnID)
		if err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not awaiting a decision")
		}

		ret.Status = enums.ReturnStatusAccepted
		if err := repo.SaveReturn(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving return")
		}
		order.Status = enums.OrderStatusReturnAccepted
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: orderID, Status: order.Status, UpdatedBy: vendorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		return s.logAction(ctx, repo, orderID, enums.OrderActionReturnAccepted, vendorID, nil)
	})
	if err != nil {
		return nil, s.reject("accept_return", err)
	}
	s.metrics.IncOperation("accept_return")
	return ret, nil
}

// RejectReturn declines a requested return; the order stays delivered.
func (s *Service) RejectReturn(ctx context.Context, vendorID, shopID, orderID, returnID uuid.UUID) (*models.OrderReturn, error) {
	defer s.observe("reject_return")()
	var ret *models.OrderReturn
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if _, err := s.lockVendorOrder(ctx, repo, shopID, orderID); err != nil {
			return err
		}
		var err error
		ret, err = s.loadReturn(ctx, repo, orderID, returnID)
		if err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not awaiting a decision")
		}
		ret.Status = enums.ReturnStatusRejected
		if err := repo.SaveReturn(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving return")
		}
		return s.logAction(ctx, repo, orderID, enums.OrderActionStatusUpdated, vendorID, strPtr("return rejected"))
	})
	if err != nil {
		return nil, s.reject("reject_return", err)
	}
	s.metrics.IncOperation("reject_return")
	return ret, nil
}

// CompleteReturn settles an accepted return once the goods are back. The
// refund is unit price times returned quantity; the buyer is credited first,
// then the vendor wallet is debited by the same amount. A vendor wallet that
// cannot cover the debit fails the whole completion.
func (s *Service) CompleteReturn(ctx context.Context, vendorID, shopID, orderID, returnID uuid.UUID) (*models.OrderReturn, error) {
	defer s.observe("complete_return")()
	var ret *models.OrderReturn
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.lockVendorOrder(ctx, repo, shopID, orderID)
		if err != nil {
			return err
		}
		ret, err = s.loadReturn(ctx, repo, orderID, returnID)
		if err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return has not been accepted")
		}

		var line *models.OrderItem
		for i := range order.Items {
			if order.Items[i].ItemID == ret.ItemID {
				line = &order.Items[i]
				break
			}
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "returned item is no longer part of the order")
		}
		refund := line.UnitPrice.Mul(decimal.NewFromInt(int64(ret.Quantity)))

		if s.isWalletPaid(order) && refund.IsPositive() {
			// buyer credit before vendor debit, per wallet lock ordering
			if _, err := s.wallet.Adjust(ctx, tx, wallet.AdjustInput{
				OwnerID:   order.BuyerID,
				Role:      enums.WalletRoleConsumer,
				Delta:     refund,
				Type:      enums.WalletTxnTypeRefund,
				Reference: returnReference(orderID),
			}); err != nil {
				return err
			}
			if _, err := s.wallet.Adjust(ctx, tx, wallet.AdjustInput{
				OwnerID:   order.ShopID,
				Role:      enums.WalletRoleVendor,
				Delta:     refund.Neg(),
				Type:      enums.WalletTxnTypeDebit,
				Reference: returnReference(orderID),
			}); err != nil {
				return err
			}
			if refund.GreaterThanOrEqual(order.TotalAmount) {
				order.PaymentStatus = enums.PaymentStatusRefunded
			} else {
				order.PaymentStatus = enums.PaymentStatusPartiallyRefunded
			}
		}

		ret.Status = enums.ReturnStatusCompleted
		if err := repo.SaveReturn(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving return")
		}
		order.Status = enums.OrderStatusReturnCompleted
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
		}
		if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: orderID, Status: order.Status, UpdatedBy: vendorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending status log")
		}
		details := fmt.Sprintf("refunded %s", refund.StringFixed(2))
		return s.logAction(ctx, repo, orderID, enums.OrderActionReturnCompleted, vendorID, &details)
	})
	if err != nil {
		return nil, s.reject("complete_return", err)
	}
	s.metrics.IncOperation("complete_return")
	return ret, nil
}

// RateOrder records the buyer's one-time rating of a delivered order.
func (s *Service) RateOrder(ctx context.Context, buyerID, orderID uuid.UUID, rating int, review string) (*models.OrderRating, error) {
	defer s.observe("rate_order")()
	if rating < 1 || rating > 5 {
		return nil, s.reject("rate_order", pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5"))
	}

	var result *models.OrderRating
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.lockBuyerOrder(ctx, repo, buyerID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case enums.OrderStatusDelivered, enums.OrderStatusReturnAccepted, enums.OrderStatusReturnCompleted:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be rated")
		}
		existing, err := repo.FindRating(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading rating")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order has already been rated")
		}

		result = &models.OrderRating{
			OrderID: orderID,
			BuyerID: buyerID,
			Rating:  rating,
			Review:  review,
		}
		if err := repo.CreateRating(ctx, result); err != nil {
			// concurrent double submit lands on the unique index
			if db.IsUniqueViolation(err, "ux_order_rating") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order has already been rated")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating rating")
		}
		return s.logAction(ctx, repo, orderID, enums.OrderActionRated, buyerID, nil)
	})
	if err != nil {
		return nil, s.reject("rate_order", err)
	}
	s.metrics.IncOperation("rate_order")
	return result, nil
}

// RaiseIssue files a buyer complaint against a delivered order. The issue
// is mirrored into the order thread so the vendor sees it.
func (s *Service) RaiseIssue(ctx context.Context, buyerID, orderID uuid.UUID, issueType, description string) (*models.OrderIssue, error) {
	defer s.observe("raise_issue")()
	issueType = strings.TrimSpace(issueType)
	if issueType == "" {
		return nil, s.reject("raise_issue", pkgerrors.New(pkgerrors.CodeValidation, "issue type is required"))
	}

	var issue *models.OrderIssue
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.lockBuyerOrder(ctx, repo, buyerID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case enums.OrderStatusDelivered, enums.OrderStatusReturnAccepted, enums.OrderStatusReturnCompleted:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "issues can only be raised after delivery")
		}
		issue = &models.OrderIssue{
			OrderID:     orderID,
			BuyerID:     buyerID,
			IssueType:   issueType,
			Description: description,
			Status:      enums.IssueStatusRaised,
		}
		if err := repo.CreateIssue(ctx, issue); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating issue")
		}
		if err := repo.CreateMessage(ctx, &models.OrderMessage{
			OrderID:  orderID,
			SenderID: buyerID,
			Message:  fmt.Sprintf("Issue raised: %s\n%s", issueType, description),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating message")
		}
		return s.logAction(ctx, repo, orderID, enums.OrderActionIssueRaised, buyerID, &issueType)
	})
	if err != nil {
		return nil, s.reject("raise_issue", err)
	}
	s.metrics.IncOperation("raise_issue")
	return issue, nil
}

// ListIssues returns the complaints filed against one of the shop's orders.
func (s *Service) ListIssues(ctx context.Context, vendorID, shopID, orderID uuid.UUID) ([]models.OrderIssue, error) {
	order, err := s.authorizeParticipant(ctx, vendorID, enums.ActorRoleVendor, shopID, orderID)
	if err != nil {
		return nil, err
	}
	return s.orders.ListIssues(ctx, order.ID)
}

// SendMessage appends a chat message to the order thread. Either party of
// the order may write; anyone else is rejected.
func (s *Service) SendMessage(ctx context.Context, senderID uuid.UUID, role enums.ActorRole, shopID, orderID uuid.UUID, message string) (*models.OrderMessage, error) {
	defer s.observe("send_message")()
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, s.reject("send_message", pkgerrors.New(pkgerrors.CodeValidation, "message is required"))
	}

	order, err := s.authorizeParticipant(ctx, senderID, role, shopID, orderID)
	if err != nil {
		return nil, s.reject("send_message", err)
	}

	msg := &models.OrderMessage{OrderID: order.ID, SenderID: senderID, Message: message}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if err := repo.CreateMessage(ctx, msg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating message")
		}
		return s.logAction(ctx, repo, order.ID, enums.OrderActionMessageSent, senderID, nil)
	})
	if err != nil {
		return nil, s.reject("send_message", err)
	}
	s.metrics.IncOperation("send_message")
	return msg, nil
}

// ListMessages returns the order chat thread for a participant.
func (s *Service) ListMessages(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, shopID, orderID uuid.UUID) ([]models.OrderMessage, error) {
	order, err := s.authorizeParticipant(ctx, actorID, role, shopID, orderID)
	if err != nil {
		return nil, err
	}
	return s.orders.ListMessages(ctx, order.ID)
}

// GetOrder loads one order for a participant.
func (s *Service) GetOrder(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, shopID, orderID uuid.UUID) (*models.Order, error) {
	return s.authorizeParticipant(ctx, actorID, role, shopID, orderID)
}

// History is the combined audit trail of an order.
type History struct {
	StatusLogs []models.OrderStatusLog
	ActionLogs []models.OrderActionLog
	Returns    []models.OrderReturn
}

// GetHistory returns the order's status transitions, actions and returns.
func (s *Service) GetHistory(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, shopID, orderID uuid.UUID) (*History, error) {
	order, err := s.authorizeParticipant(ctx, actorID, role, shopID, orderID)
	if err != nil {
		return nil, err
	}

	statusLogs, err := s.orders.ListStatusLogs(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing status logs")
	}
	actionLogs, err := s.orders.ListActionLogs(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing action logs")
	}
	returns, err := s.orders.ListReturns(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing returns")
	}
	return &History{StatusLogs: statusLogs, ActionLogs: actionLogs, Returns: returns}, nil
}

// ListBuyerOrders pages through a buyer's order history, newest first.
func (s *Service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params orders.ListOrdersQuery) ([]models.Order, *string, error) {
	params.BuyerID = buyerID
	page, cursor, err := s.orders.ListByBuyer(ctx, params)
	return page, encodeCursor(cursor), err
}

// ListShopOrders pages through a shop's orders, optionally by status.
func (s *Service) ListShopOrders(ctx context.Context, shopID uuid.UUID, params orders.ListOrdersQuery) ([]models.Order, *string, error) {
	params.ShopID = shopID
	page, cursor, err := s.orders.ListByShop(ctx, params)
	return page, encodeCursor(cursor), err
}

func (s *Service) lockBuyerOrder(ctx context.Context, repo orders.Repository, buyerID, orderID uuid.UUID) (*models.Order, error) {
	if buyerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and order ids required")
	}
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
	}
	return order, nil
}

func (s *Service) lockVendorOrder(ctx context.Context, repo orders.Repository, shopID, orderID uuid.UUID) (*models.Order, error) {
	if shopID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop and order ids required")
	}
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.ShopID != shopID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to shop")
	}
	return order, nil
}

func (s *Service) authorizeParticipant(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, shopID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	switch role {
	case enums.ActorRoleConsumer:
		if order.BuyerID != actorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
	case enums.ActorRoleVendor:
		if order.ShopID != shopID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to shop")
		}
	case enums.ActorRoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return order, nil
}

func (s *Service) loadReturn(ctx context.Context, repo orders.Repository, orderID, returnID uuid.UUID) (*models.OrderReturn, error) {
	ret, err := repo.FindReturn(ctx, returnID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading return")
	}
	if ret == nil || ret.OrderID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found for order")
	}
	return ret, nil
}

func (s *Service) logAction(ctx context.Context, repo orders.Repository, orderID uuid.UUID, action enums.OrderAction, actorID uuid.UUID, details *string) error {
	if err := repo.AppendActionLog(ctx, &models.OrderActionLog{
		OrderID: orderID,
		Action:  action,
		ActorID: actorID,
		Details: details,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending action log")
	}
	return nil
}

func (s *Service) isWalletPaid(order *models.Order) bool {
	if order.PaymentMode != enums.PaymentModeWallet {
		return false
	}
	switch order.PaymentStatus {
	case enums.PaymentStatusPaid, enums.PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

func (s *Service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading order")
	}
	return order, nil
}

func (s *Service) observe(operation string) func() {
	start := time.Now()
	return func() { s.metrics.ObserveDuration(operation, time.Since(start)) }
}

func (s *Service) reject(operation string, err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		s.metrics.IncRejection(operation, string(typed.Code()))
	} else {
		s.metrics.IncRejection(operation, string(pkgerrors.CodeInternal))
	}
	return err
}

func paymentReference(orderID uuid.UUID) string {
	return "order_payment:" + orderID.String()
}

func refundReference(orderID uuid.UUID) string {
	return "order_refund:" + orderID.String()
}

func settlementReference(orderID uuid.UUID) string {
	return "order_settlement:" + orderID.String()
}

func returnReference(orderID uuid.UUID) string {
	return "order_return:" + orderID.String()
}

func strPtr(v string) *string { return &v }

func encodeCursor(cursor *pagination.Cursor) *string {
	if cursor == nil {
		return nil
	}
	encoded := pagination.EncodeCursor(*cursor)
	return &encoded
}
