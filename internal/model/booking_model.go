package model

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerId    uuid.UUID `gorm:"type:uuid;not null;index"`
	ProviderId    uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerName  string    `gorm:"type:varchar(255)"`
	CustomerEmail string    `gorm:"type:varchar(255)"`
	ServiceName   string    `gorm:"type:varchar(255)"`
	Amount        float64   `gorm:"type:decimal(10,2);not null"`
	Currency      string    `gorm:"type:varchar(3);default:'IDR'"`
	Status        string    `gorm:"type:varchar(50);not null;default:'pending'"`
	PaymentStatus string    `gorm:"type:varchar(50);not null;default:'not_paid'"`
	ScheduledAt   time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Booking) TableName() string {
	return "bookings"
}
