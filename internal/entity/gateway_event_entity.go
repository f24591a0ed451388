package entity

import (
	"time"

	"github.com/google/uuid"
)

// GatewayEvent is one verified webhook notification as received from the
// gateway, kept verbatim for reconciliation audits.
type GatewayEvent struct {
	Id        uuid.UUID
	OrderId   string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}
