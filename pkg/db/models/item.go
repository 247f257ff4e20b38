package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a catalog entry. QuantityInStock is the stock counter the checkout
// path locks and decrements; NULL means stock tracking is disabled for the
// item and checkout skips the availability check.
type Item struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID          uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Title           string          `gorm:"column:title;not null"`
	Unit            string          `gorm:"column:unit"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	QuantityInStock *int            `gorm:"column:quantity_in_stock"`
	IsAvailable     bool            `gorm:"column:is_available;not null;default:true"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
