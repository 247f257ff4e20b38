package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// Order is the root of the order aggregate. TotalAmount is the sum of line
// items at creation; FinalAmount is the current authoritative total and is
// what refunds and the delivery settlement are computed against once a vendor
// modification makes it diverge.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID       uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	ShopID        uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;index:ix_order_shop_status"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;index:ix_order_shop_status"`
	PaymentMode   enums.PaymentMode   `gorm:"column:payment_mode;type:text;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	DeliveryNotes *string             `gorm:"column:delivery_notes;type:text"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	FinalAmount   decimal.Decimal     `gorm:"column:final_amount;type:numeric(10,2);not null"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
