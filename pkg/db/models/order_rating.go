package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRating is the buyer's one-time rating of a delivered order.
type OrderRating struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Review    string    `gorm:"column:review"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *OrderRating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
