// Package events announces ledger changes to downstream consumers such as
// the tenant notification sender. Delivery is best effort: the ledger logs a
// failed publish and carries on.
package events

import (
	"context"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/models"
)

// EventType names a ledger change
type EventType string

const (
	EventBillCreated EventType = "bill.created"
	EventBillPaid    EventType = "bill.paid"
)

// BillEvent is the message body published for every ledger change
type BillEvent struct {
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Bill       models.Bill `json:"bill"`
}

// Publisher receives ledger changes after they are committed
type Publisher interface {
	BillCreated(ctx context.Context, bill models.Bill) error
	BillPaid(ctx context.Context, bill models.Bill) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) BillCreated(context.Context, models.Bill) error { return nil }
func (NoopPublisher) BillPaid(context.Context, models.Bill) error    { return nil }
