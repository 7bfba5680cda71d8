package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Direction distinguishes outbound send attempts from customer replies.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Kind is the outcome of an outgoing send attempt. Incoming events carry no
// kind.
type Kind string

const (
	KindSent    Kind = "sent"
	KindFailed  Kind = "failed"
	KindSkipped Kind = "skipped"
)

// NotificationEvent is one entry in an order's append-only communication log.
// Rows are never updated or deleted; insertion order is chronological order.
type NotificationEvent struct {
	bun.BaseModel `bun:"table:order_notifications"`

	ID                int64     `bun:",pk,autoincrement"`
	OrderID           string    `bun:"order_id"`
	Direction         Direction `bun:"direction"`
	Kind              Kind      `bun:"kind,nullzero"`
	Body              string    `bun:"body"`
	ExternalMessageID string    `bun:"external_message_id,nullzero"`
	Error             string    `bun:"error,nullzero"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
