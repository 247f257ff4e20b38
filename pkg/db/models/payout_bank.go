package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VendorPayoutBank stores the bank destination for vendor wallet withdrawals.
type VendorPayoutBank struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID       uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	AccountName   string    `gorm:"column:account_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	IFSC          string    `gorm:"column:ifsc;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *VendorPayoutBank) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
