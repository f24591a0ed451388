package service

import (
	"time"

	"pet-aftercare-be/internal/entity"
)

// EligibilityResult is the outcome of the refund policy check.
type EligibilityResult struct {
	Eligible bool
	Reason   string
	// Percent of the net paid amount that may be refunded (100 or 50).
	Percent int
}

// CheckRefundEligibility applies the refund policy to a booking:
//
//   - money must actually have been collected (paid or partially paid)
//   - at most one refund may be in flight per booking
//   - pending, confirmed and cancelled bookings refund in full
//   - completed bookings refund 50% inside the post-completion window,
//     nothing after it
//
// It is a pure function of its inputs so the policy can be tested without
// any storage behind it.
func CheckRefundEligibility(booking *entity.Booking, refunds []*entity.RefundTransaction, now time.Time, completedWindow time.Duration) EligibilityResult {
	if booking.PaymentStatus == entity.BookingRefunded {
		return EligibilityResult{Reason: "booking has already been refunded"}
	}
	if booking.PaymentStatus != entity.BookingPaid && booking.PaymentStatus != entity.BookingPartiallyPaid {
		return EligibilityResult{Reason: "no settled payment exists for this booking"}
	}

	for _, r := range refunds {
		if r.Status.IsActive() {
			return EligibilityResult{Reason: "a refund is already in progress for this booking"}
		}
	}

	switch booking.Status {
	case entity.BookingStatusPending, entity.BookingStatusConfirmed, entity.BookingStatusCancelled:
		return EligibilityResult{Eligible: true, Percent: 100}
	case entity.BookingStatusCompleted:
		if booking.CompletedAt == nil {
			// Completed without a timestamp should not happen; refuse rather
			// than guess the window.
			return EligibilityResult{Reason: "booking completion time is unknown"}
		}
		if now.Sub(*booking.CompletedAt) <= completedWindow {
			return EligibilityResult{Eligible: true, Percent: 50}
		}
		return EligibilityResult{Reason: "refund window after completion has passed"}
	default:
		return EligibilityResult{Reason: "booking is not in a refundable state"}
	}
}
