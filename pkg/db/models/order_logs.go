package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// OrderStatusLog records one status transition. Append-only: rows are never
// updated or deleted, which downstream reconciliation relies on.
type OrderStatusLog struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	UpdatedBy uuid.UUID         `gorm:"column:updated_by;type:uuid;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (l *OrderStatusLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// OrderActionLog records one actor action against an order. Append-only.
type OrderActionLog struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Action    enums.OrderAction `gorm:"column:action;type:text;not null"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Details   *string           `gorm:"column:details;type:text"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (l *OrderActionLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// OrderMessage is one message between buyer and vendor on an order thread.
// Append-only.
type OrderMessage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Message   string    `gorm:"column:message;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (m *OrderMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
