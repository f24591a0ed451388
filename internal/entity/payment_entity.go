package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentTxStatus string
type PaymentMethod string
type PaymentProvider string

const (
	PaymentTxPending    PaymentTxStatus = "pending"
	PaymentTxProcessing PaymentTxStatus = "processing"
	PaymentTxSucceeded  PaymentTxStatus = "succeeded"
	PaymentTxFailed     PaymentTxStatus = "failed"
	PaymentTxCancelled  PaymentTxStatus = "cancelled"

	// PaymentMethodGateway is an online payment collected through the
	// external gateway; PaymentMethodCash is settled in person.
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodCash    PaymentMethod = "cash"

	ProviderGateway PaymentProvider = "gateway"
	ProviderManual  PaymentProvider = "manual"
)

// IsTerminal reports whether the status can no longer change.
func (s PaymentTxStatus) IsTerminal() bool {
	return s == PaymentTxSucceeded || s == PaymentTxFailed || s == PaymentTxCancelled
}

// PaymentTransaction is one payment attempt for a booking. Rows are never
// deleted; failed attempts stay behind as audit history and a new attempt
// gets a new row.
type PaymentTransaction struct {
	Id                    uuid.UUID
	BookingId             uuid.UUID
	Amount                float64
	Currency              string
	PaymentMethod         PaymentMethod
	Status                PaymentTxStatus
	Provider              PaymentProvider
	GatewaySourceId       *string
	GatewayIntentId       *string
	ProviderTransactionId *string // set only on confirmed settlement
	CheckoutUrl           *string
	FailureReason         *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
