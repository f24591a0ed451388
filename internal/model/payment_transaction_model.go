package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentTransaction struct {
	Id                    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingId             uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount                float64   `gorm:"type:decimal(10,2);not null"`
	Currency              string    `gorm:"type:varchar(3);default:'IDR'"`
	PaymentMethod         string    `gorm:"type:varchar(50);not null"`
	Status                string    `gorm:"type:varchar(50);not null;default:'pending'"` // pending, processing, succeeded, failed, cancelled
	Provider              string    `gorm:"type:varchar(50);not null;default:'gateway'"`
	GatewaySourceId       *string   `gorm:"type:varchar(255);index"`
	GatewayIntentId       *string   `gorm:"type:varchar(255)"`
	ProviderTransactionId *string   `gorm:"type:varchar(255)"`
	CheckoutUrl           *string   `gorm:"type:text"`
	FailureReason         *string   `gorm:"type:text"`
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`

	// Relations
	Booking Booking `gorm:"foreignKey:BookingId"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
