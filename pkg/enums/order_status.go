package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending                       OrderStatus = "pending"
	OrderStatusAccepted                      OrderStatus = "accepted"
	OrderStatusRejected                      OrderStatus = "rejected"
	OrderStatusAwaitingConsumerConfirmation  OrderStatus = "awaiting_consumer_confirmation"
	OrderStatusConfirmed                     OrderStatus = "confirmed"
	OrderStatusCancelled                     OrderStatus = "cancelled"
	OrderStatusDelivered                     OrderStatus = "delivered"
	OrderStatusReturnAccepted                OrderStatus = "return_accepted"
	OrderStatusReturnCompleted               OrderStatus = "return_completed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusRejected,
	OrderStatusAwaitingConsumerConfirmation,
	OrderStatusConfirmed,
	OrderStatusCancelled,
	OrderStatusDelivered,
	OrderStatusReturnAccepted,
	OrderStatusReturnCompleted,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsClosed reports whether no further lifecycle mutation is allowed.
// Orders in return flow count as closed for modification and cancellation.
func (s OrderStatus) IsClosed() bool {
	switch s {
	case OrderStatusRejected, OrderStatusCancelled, OrderStatusDelivered, OrderStatusReturnAccepted, OrderStatusReturnCompleted:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
