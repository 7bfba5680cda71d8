package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Status enumerates the order workflow states (persisted as strings).
type Status string

const (
	StatusReceived       Status = "received"
	StatusInProgress     Status = "inProgress"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "outForDelivery"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// allowedTransitions is the directed edge set of the workflow. Forward edges
// only, plus cancellation from every non-terminal state.
var allowedTransitions = map[Status][]Status{
	StatusReceived:       {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// ValidStatus reports whether s is a known workflow state.
func ValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is a legal workflow edge.
func CanTransition(from, to Status) bool {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsOpen reports whether an order in state s is still in the pipeline and
// therefore a candidate for inbound-message correlation.
func (s Status) IsOpen() bool {
	return ValidStatus(s) && !s.IsTerminal()
}

// OpenStatuses lists every non-terminal state.
func OpenStatuses() []Status {
	return []Status{StatusReceived, StatusInProgress, StatusReady, StatusOutForDelivery}
}

// ServiceItem is one service line on an order. Cancelled items stay on the
// order for the register but are excluded from customer-facing messages.
type ServiceItem struct {
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Order is a unit of work tracked through the shop's cleaning pipeline.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID          string        `bun:",pk"`
	Number      int64         `bun:"number"`
	Client      string        `bun:"client"`
	Phone       string        `bun:"phone"`
	Status      Status        `bun:"status"`
	Services    []ServiceItem `bun:"services,type:jsonb"`
	CreatedAt   time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time     `bun:"updated_at,nullzero"`
	CompletedAt *time.Time    `bun:"completed_at"`
	CancelledAt *time.Time    `bun:"cancelled_at"`

	Notifications []*NotificationEvent `bun:"rel:has-many,join:id=order_id"`
}

// ActiveServiceNames returns the names of non-cancelled service lines in
// order-entry sequence.
func (o *Order) ActiveServiceNames() []string {
	names := make([]string, 0, len(o.Services))
	for _, svc := range o.Services {
		if svc.Cancelled {
			continue
		}
		names = append(names, svc.Name)
	}
	return names
}
