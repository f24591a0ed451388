package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByBooking filters ledger rows by booking.
type ByBooking struct {
	BookingID uuid.UUID
}

func (s ByBooking) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("booking_id = ?", s.BookingID)
}

// ActiveRefund filters refunds still in a non-terminal state.
type ActiveRefund struct{}

func (s ActiveRefund) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", []string{"pending", "processing"})
}

// RetryableRefunds selects failed gateway refunds the coordinator may
// re-dispatch.
type RetryableRefunds struct{}

func (s RetryableRefunds) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND retryable = ? AND payment_method = ?",
		"failed", true, "gateway")
}

// SucceededPayments selects settled payment attempts.
type SucceededPayments struct{}

func (s SucceededPayments) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", "succeeded")
}
