package model

import (
	"time"

	"github.com/google/uuid"
)

type RefundTransaction struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingId       uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount          float64   `gorm:"type:decimal(10,2);not null"`
	Currency        string    `gorm:"type:varchar(3);default:'IDR'"`
	Reason          string    `gorm:"type:varchar(50);not null"`
	Status          string    `gorm:"type:varchar(50);not null;default:'pending'"` // pending, processing, processed, failed, cancelled
	PaymentMethod   string    `gorm:"type:varchar(50);not null"`
	Provider        string    `gorm:"type:varchar(50);not null;default:'gateway'"`
	GatewayRefundId *string   `gorm:"type:varchar(255)"`
	Notes           string    `gorm:"type:text"`
	FailureReason   *string   `gorm:"type:text"`
	Retryable       bool      `gorm:"default:false;index"`
	RetryCount      int       `gorm:"default:0"`
	InitiatedBy     uuid.UUID `gorm:"type:uuid;not null"`
	InitiatedByType string    `gorm:"type:varchar(20);not null"`
	ProcessedAt     *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`

	// Relations
	Booking Booking `gorm:"foreignKey:BookingId"`
}

func (RefundTransaction) TableName() string {
	return "refund_transactions"
}
