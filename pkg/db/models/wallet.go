package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// Wallet holds the platform balance for one actor-role pair. Consumers and
// vendors each get their own wallet row; the balance is never negative.
type Wallet struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID        `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_wallet_owner_role"`
	Role      enums.WalletRole `gorm:"column:role;type:text;not null;uniqueIndex:ux_wallet_owner_role"`
	Balance   decimal.Decimal  `gorm:"column:balance;type:numeric(10,2);not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
