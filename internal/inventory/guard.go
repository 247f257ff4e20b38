package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db"
	"github.com/localkart/localkart-backend/pkg/db/models"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
)

// Repository handles item stock persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUpdate(ctx context.Context, itemIDs []uuid.UUID) ([]models.Item, error)
	DecrementStock(ctx context.Context, itemID uuid.UUID, quantity int) error
	IncrementStock(ctx context.Context, itemID uuid.UUID, quantity int) error
	FindByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.Item, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindForUpdate(ctx context.Context, itemIDs []uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", itemIDs).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DecrementStock(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", itemID).
		Update("quantity_in_stock", gorm.Expr("quantity_in_stock - ?", quantity)).Error
}

func (r *repository) IncrementStock(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND quantity_in_stock IS NOT NULL", itemID).
		Update("quantity_in_stock", gorm.Expr("quantity_in_stock + ?", quantity)).Error
}

func (r *repository) FindByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Guard reserves stock for checkout. All mutations happen inside the
// caller's transaction so a later failure releases the reservation.
type Guard struct {
	repo Repository
}

// NewGuard builds an inventory guard.
func NewGuard(repo Repository) (*Guard, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Guard{repo: repo}, nil
}

// Line is one requested reservation.
type Line struct {
	ItemID   uuid.UUID
	Quantity int
}

// Reserve locks the requested items in ascending id order, verifies tracked
// stock covers each requested quantity and decrements it. Items with NULL
// stock are untracked and pass through without a decrement. Unavailable or
// missing items fail the whole reservation.
func (g *Guard) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) ([]models.Item, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock reservation requires a transaction")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items to reserve")
	}

	quantities := make(map[uuid.UUID]int, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, seen := quantities[line.ItemID]; !seen {
			ids = append(ids, line.ItemID)
		}
		quantities[line.ItemID] += line.Quantity
	}
	// deterministic lock order across concurrent checkouts
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	repo := g.repo.WithTx(tx)

	items, err := repo.FindForUpdate(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking items")
	}
	if len(items) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more items not found")
	}

	for _, item := range items {
		wanted := quantities[item.ID]
		if !item.IsActive || !item.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("item %q is unavailable", item.Title))
		}
		if item.QuantityInStock == nil {
			continue
		}
		if *item.QuantityInStock < wanted {
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("insufficient stock for item %q", item.Title))
		}
	}

	for _, item := range items {
		if item.QuantityInStock == nil {
			continue
		}
		if err := repo.DecrementStock(ctx, item.ID, quantities[item.ID]); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrementing stock")
		}
	}

	return items, nil
}

// Release returns previously reserved quantities to tracked items. Untracked
// items are untouched.
func (g *Guard) Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stock release requires a transaction")
	}
	repo := g.repo.WithTx(tx)
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if err := repo.IncrementStock(ctx, line.ItemID, line.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restoring stock")
		}
	}
	return nil
}
