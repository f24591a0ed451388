package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GatewayEvent is the audit row for every verified gateway webhook.
// Stored before reconciliation so a disputed settlement can always be
// traced back to the exact payload the gateway sent.
type GatewayEvent struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderId   string         `gorm:"type:varchar(255);not null;index"`
	EventType string         `gorm:"type:varchar(100);not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (GatewayEvent) TableName() string {
	return "gateway_events"
}
