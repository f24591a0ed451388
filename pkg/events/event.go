package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PAYMENT_SUCCEEDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used across the engine.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event types emitted by the payment and refund orchestrators.
// The notification service subscribes to these; orchestrators never
// block or fail on delivery problems.
const (
	TypePaymentCreated   = "PAYMENT_CREATED"
	TypePaymentSucceeded = "PAYMENT_SUCCEEDED"
	TypePaymentFailed    = "PAYMENT_FAILED"
	TypeRefundRequested  = "REFUND_REQUESTED"
	TypeRefundProcessed  = "REFUND_PROCESSED"
	TypeRefundFailed     = "REFUND_FAILED"
	TypeRefundDenied     = "REFUND_DENIED"
)
