package enums

// OrderAction names an entry in the order action log. The log is append-only,
// so these values are part of the audit vocabulary and must stay stable.
type OrderAction string

const (
	OrderActionCreated               OrderAction = "order_created"
	OrderActionVendorModified        OrderAction = "vendor_modified"
	OrderActionModificationConfirmed OrderAction = "modification_confirmed"
	OrderActionCancelled             OrderAction = "order_cancelled"
	OrderActionStatusUpdated         OrderAction = "status_updated"
	OrderActionMessageSent           OrderAction = "message_sent"
	OrderActionRated                 OrderAction = "order_rated"
	OrderActionIssueRaised           OrderAction = "issue_raised"
	OrderActionReturnRequested       OrderAction = "return_requested"
	OrderActionReturnAccepted        OrderAction = "return_accepted"
	OrderActionVendorForcedReturn    OrderAction = "vendor_forced_return"
	OrderActionReturnCompleted       OrderAction = "return_completed"
)

// String implements fmt.Stringer.
func (a OrderAction) String() string {
	return string(a)
}
