package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one line in a buyer's cart. Carts are a thin collaborator of
// the order core: checkout consumes the snapshot and clears the rows.
type CartItem struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID         uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null;index"`
	ShopID          uuid.UUID        `gorm:"column:shop_id;type:uuid;not null"`
	ItemID          uuid.UUID        `gorm:"column:item_id;type:uuid;not null"`
	Quantity        int              `gorm:"column:quantity;not null;default:1"`
	PriceAtAddition *decimal.Decimal `gorm:"column:price_at_addition;type:numeric(10,2)"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
