package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Payment DTOs ---

type CreatePaymentRequest struct {
	BookingId     uuid.UUID `json:"booking_id" validate:"required"`
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	PaymentMethod string    `json:"payment_method" validate:"required,oneof=gateway cash"`
}

type PaymentResponse struct {
	TransactionId uuid.UUID `json:"transaction_id"`
	BookingId     uuid.UUID `json:"booking_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	CheckoutUrl   *string   `json:"checkout_url,omitempty"`
}

// PaymentStatusResponse reflects the booking-level payment state. When the
// booking has no payment rows yet the transaction block is absent and the
// status is synthesized from the booking record.
type PaymentStatusResponse struct {
	BookingId     uuid.UUID               `json:"booking_id"`
	PaymentStatus string                  `json:"payment_status"`
	Transaction   *PaymentTransactionInfo `json:"transaction,omitempty"`
}

type PaymentTransactionInfo struct {
	TransactionId uuid.UUID `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	CheckoutUrl   *string   `json:"checkout_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
