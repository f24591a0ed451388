package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Refund Request/Response ---

type RefundRequest struct {
	BookingId uuid.UUID `json:"booking_id" validate:"required"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
	Reason    string    `json:"reason" validate:"required"`
	Notes     string    `json:"notes"`
}

// RefundResponse is the structured outcome of a refund request. Expected
// business failures (ineligible, gateway declined) come back here with
// Success=false rather than as transport errors.
type RefundResponse struct {
	Success                  bool       `json:"success"`
	RefundId                 *uuid.UUID `json:"refund_id,omitempty"`
	BookingId                uuid.UUID  `json:"booking_id"`
	Amount                   float64    `json:"amount,omitempty"`
	Status                   string     `json:"status,omitempty"`
	RefundType               string     `json:"refund_type,omitempty"` // automatic | manual
	RequiresManualProcessing bool       `json:"requires_manual_processing"`
	Instructions             string     `json:"instructions,omitempty"`
	Error                    string     `json:"error,omitempty"`
	Message                  string     `json:"message,omitempty"`
}

type EligibilityResponse struct {
	BookingId         uuid.UUID `json:"booking_id"`
	Eligible          bool      `json:"eligible"`
	Reason            string    `json:"reason,omitempty"`
	RefundablePercent int       `json:"refundable_percent,omitempty"`
	MaxRefundable     float64   `json:"max_refundable,omitempty"`
}

type DenyRefundRequest struct {
	Notes string `json:"notes"`
}

type CompleteRefundRequest struct {
	BookingId uuid.UUID `json:"booking_id" validate:"required"`
}

// --- Staff-Side Refund List ---

type RefundListItem struct {
	Id            uuid.UUID  `json:"id"`
	BookingId     uuid.UUID  `json:"booking_id"`
	CustomerName  string     `json:"customer_name"`
	ServiceName   string     `json:"service_name"`
	Amount        float64    `json:"amount"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	Retryable     bool       `json:"retryable"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// --- Retry Coordinator ---

type RetryRunResponse struct {
	Attempted   int `json:"attempted"`
	Succeeded   int `json:"succeeded"`
	StillFailed int `json:"still_failed"`
}
