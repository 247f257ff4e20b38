package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db/models"
)

// Repository handles cart persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByBuyerAndShop(ctx context.Context, buyerID, shopID uuid.UUID) ([]models.CartItem, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	FindLine(ctx context.Context, buyerID, itemID uuid.UUID) (*models.CartItem, error)
	Save(ctx context.Context, line *models.CartItem) error
	DeleteLine(ctx context.Context, buyerID, itemID uuid.UUID) error
	ClearShop(ctx context.Context, buyerID, shopID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByBuyerAndShop(ctx context.Context, buyerID, shopID uuid.UUID) ([]models.CartItem, error) {
	var lines []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND shop_id = ?", buyerID, shopID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	var lines []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) FindLine(ctx context.Context, buyerID, itemID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND item_id = ?", buyerID, itemID).
		First(&line).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

func (r *repository) Save(ctx context.Context, line *models.CartItem) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *repository) DeleteLine(ctx context.Context, buyerID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND item_id = ?", buyerID, itemID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) ClearShop(ctx context.Context, buyerID, shopID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND shop_id = ?", buyerID, shopID).
		Delete(&models.CartItem{}).Error
}
