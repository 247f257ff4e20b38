package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// OrderIssue is a post-delivery problem report raised by the buyer.
type OrderIssue struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	IssueType   string            `gorm:"column:issue_type;not null"`
	Description string            `gorm:"column:description;type:text"`
	Status      enums.IssueStatus `gorm:"column:status;type:text;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderIssue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
