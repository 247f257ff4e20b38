package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// WalletTxnStatus values recorded on ledger entries.
const (
	WalletTxnStatusSuccess = "success"
	WalletTxnStatusFailed  = "failed"
)

// WalletTransaction is one immutable ledger entry. Amounts are stored as
// absolute values; the direction lives in Type. Rows are append-only and are
// created in the same transaction as the wallet mutation they record.
type WalletTransaction struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index:ix_wallet_txn_owner"`
	Role      enums.WalletRole    `gorm:"column:role;type:text;not null;index:ix_wallet_txn_owner"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Type      enums.WalletTxnType `gorm:"column:type;type:text;not null"`
	Reference string              `gorm:"column:reference;type:text"`
	Status    string              `gorm:"column:status;type:text"`
	Source    *string             `gorm:"column:source;type:text"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
