package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string
type BookingPaymentStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"

	BookingNotPaid              BookingPaymentStatus = "not_paid"
	BookingPartiallyPaid        BookingPaymentStatus = "partially_paid"
	BookingPaid                 BookingPaymentStatus = "paid"
	BookingRefunded             BookingPaymentStatus = "refunded"
	BookingAwaitingConfirmation BookingPaymentStatus = "awaiting_payment_confirmation"
	BookingPaymentFailed        BookingPaymentStatus = "failed"
)

// Booking is the minimal payment-relevant view of a cremation booking.
// The full booking lifecycle (scheduling, documents, provider assignment)
// is owned by the booking subsystem; the payment engine only reads and
// writes Status and PaymentStatus.
type Booking struct {
	Id            uuid.UUID
	CustomerId    uuid.UUID
	ProviderId    uuid.UUID
	CustomerName  string
	CustomerEmail string
	ServiceName   string
	Amount        float64
	Currency      string
	Status        BookingStatus
	PaymentStatus BookingPaymentStatus
	ScheduledAt   time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
