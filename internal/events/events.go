package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the envelope published to the notification relay whenever escrow
// state changes. Consumers (UI refresh, email, the job service) subscribe to
// events.<type> subjects.
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Data          json.RawMessage `json:"data"`
}

const (
	EventPaymentCompleted    = "payment.completed"
	EventPaymentFailed       = "payment.failed"
	EventJobVerified         = "payment.job_verified"
	EventEscrowHeld          = "escrow.held"
	EventEscrowReleased      = "escrow.released"
	EventEscrowRefunded      = "escrow.refunded"
	EventWithdrawalRequested = "withdrawal.requested"
	EventWithdrawalCompleted = "withdrawal.completed"
	EventWithdrawalFailed    = "withdrawal.failed"
)

func New(eventType, aggregateType, aggregateID string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            ulid.Make().String(),
		Type:          eventType,
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          raw,
	}, nil
}

// Publisher delivers events to the relay. Publishing is best effort from the
// ledger's point of view: a failed publish never rolls back a committed
// mutation.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close()
}
