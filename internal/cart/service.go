package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db/models"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
)

type itemFinder interface {
	FindByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.Item, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo  Repository
	Items itemFinder
}

// Service manages buyer carts.
type Service struct {
	repo  Repository
	items itemFinder
}

// NewService builds a cart service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Items == nil {
		return nil, errors.New("item finder is required")
	}
	return &Service{repo: params.Repo, items: params.Items}, nil
}

// AddItem puts an item in the buyer's cart or bumps the quantity of an
// existing line. The catalog price is snapshotted at addition time.
func (s *Service) AddItem(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if buyerID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and item ids required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	found, err := s.items.FindByIDs(ctx, []uuid.UUID{itemID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading item")
	}
	if len(found) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	item := found[0]
	if !item.IsActive || !item.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item is not available")
	}

	line, err := s.repo.FindLine(ctx, buyerID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart line")
	}
	if line == nil {
		price := item.Price
		line = &models.CartItem{
			BuyerID:         buyerID,
			ShopID:          item.ShopID,
			ItemID:          itemID,
			Quantity:        quantity,
			PriceAtAddition: &price,
		}
	} else {
		line.Quantity += quantity
	}

	if err := s.repo.Save(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart line")
	}
	return line, nil
}

// UpdateQuantity sets the quantity of an existing line; zero removes it.
func (s *Service) UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	line, err := s.repo.FindLine(ctx, buyerID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart line")
	}
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	if quantity == 0 {
		return s.repo.DeleteLine(ctx, buyerID, itemID)
	}
	line.Quantity = quantity
	if err := s.repo.Save(ctx, line); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart line")
	}
	return nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) error {
	return s.repo.DeleteLine(ctx, buyerID, itemID)
}

// List returns all cart lines for the buyer.
func (s *Service) List(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

// SnapshotLine is a cart line joined with its current catalog data.
type SnapshotLine struct {
	Item     models.Item
	Quantity int
}

// Snapshot resolves the buyer's cart for one shop against the live catalog.
// Checkout uses current catalog prices, not the price at addition.
func (s *Service) Snapshot(ctx context.Context, tx *gorm.DB, buyerID, shopID uuid.UUID) ([]SnapshotLine, error) {
	repo := s.repo.WithTx(tx)
	lines, err := repo.ListByBuyerAndShop(ctx, buyerID, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty for this shop")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}
	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart items")
	}
	byID := make(map[uuid.UUID]models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	snapshot := make([]SnapshotLine, 0, len(lines))
	for _, line := range lines {
		item, ok := byID[line.ItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart references a missing item")
		}
		snapshot = append(snapshot, SnapshotLine{Item: item, Quantity: line.Quantity})
	}
	return snapshot, nil
}

// Clear removes all of the buyer's lines for the shop, inside the caller's
// transaction when one is supplied.
func (s *Service) Clear(ctx context.Context, tx *gorm.DB, buyerID, shopID uuid.UUID) error {
	return s.repo.WithTx(tx).ClearShop(ctx, buyerID, shopID)
}
