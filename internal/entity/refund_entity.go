package entity

import (
	"time"

	"github.com/google/uuid"
)

type RefundStatus string
type RefundReason string
type InitiatorType string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusProcessed  RefundStatus = "processed"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusCancelled  RefundStatus = "cancelled"

	RefundReasonCustomerRequested  RefundReason = "customer-requested"
	RefundReasonDuplicate          RefundReason = "duplicate"
	RefundReasonFraudulent         RefundReason = "fraudulent"
	RefundReasonServiceNotProvided RefundReason = "service-not-provided"
	RefundReasonAdminInitiated     RefundReason = "admin-initiated"
	RefundReasonOther              RefundReason = "other"

	InitiatorAdmin    InitiatorType = "admin"
	InitiatorStaff    InitiatorType = "staff"
	InitiatorCustomer InitiatorType = "customer"
)

// IsActive reports whether the refund is in a non-terminal state. At most
// one active refund may exist per booking; the ledger enforces this with a
// partial unique index.
func (s RefundStatus) IsActive() bool {
	return s == RefundStatusPending || s == RefundStatusProcessing
}

// RefundTransaction is one refund request for a booking. A failed dispatch
// is retried by re-dispatching the same row, never by creating a new one,
// so Notes accumulates the retry history.
type RefundTransaction struct {
	Id              uuid.UUID
	BookingId       uuid.UUID
	Amount          float64
	Currency        string
	Reason          RefundReason
	Status          RefundStatus
	PaymentMethod   PaymentMethod
	Provider        PaymentProvider
	GatewayRefundId *string
	Notes           string
	FailureReason   *string
	Retryable       bool
	RetryCount      int
	InitiatedBy     uuid.UUID
	InitiatedByType InitiatorType
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Booking is populated only by the list queries that preload it.
	Booking *Booking
}

// ValidRefundReason reports whether the given reason is one of the
// enumerated refund reasons.
func ValidRefundReason(r RefundReason) bool {
	switch r {
	case RefundReasonCustomerRequested, RefundReasonDuplicate, RefundReasonFraudulent,
		RefundReasonServiceNotProvided, RefundReasonAdminInitiated, RefundReasonOther:
		return true
	}
	return false
}
