package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// OrderReturn is one return request for a line of a delivered order.
type OrderReturn struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID      uuid.UUID             `gorm:"column:item_id;type:uuid;not null"`
	Quantity    int                   `gorm:"column:quantity;not null;default:1"`
	Reason      string                `gorm:"column:reason"`
	InitiatedBy enums.ReturnInitiator `gorm:"column:initiated_by;type:text;not null"`
	Status      enums.ReturnStatus    `gorm:"column:status;type:text;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *OrderReturn) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
