package service

import (
	"testing"
	"time"

	"pet-aftercare-be/internal/entity"
)

func TestCheckRefundEligibility(t *testing.T) {
	now := time.Now()
	window := 168 * time.Hour
	completedRecently := now.Add(-24 * time.Hour)
	completedLongAgo := now.Add(-200 * time.Hour)

	tests := []struct {
		name          string
		bookingStatus entity.BookingStatus
		paymentStatus entity.BookingPaymentStatus
		completedAt   *time.Time
		refunds       []*entity.RefundTransaction
		wantEligible  bool
		wantPercent   int
	}{
		{
			name:          "pending booking refunds in full",
			bookingStatus: entity.BookingStatusPending,
			paymentStatus: entity.BookingPaid,
			wantEligible:  true,
			wantPercent:   100,
		},
		{
			name:          "confirmed booking refunds in full",
			bookingStatus: entity.BookingStatusConfirmed,
			paymentStatus: entity.BookingPaid,
			wantEligible:  true,
			wantPercent:   100,
		},
		{
			name:          "cancelled booking refunds in full",
			bookingStatus: entity.BookingStatusCancelled,
			paymentStatus: entity.BookingPaid,
			wantEligible:  true,
			wantPercent:   100,
		},
		{
			name:          "completed inside window refunds half",
			bookingStatus: entity.BookingStatusCompleted,
			paymentStatus: entity.BookingPaid,
			completedAt:   &completedRecently,
			wantEligible:  true,
			wantPercent:   50,
		},
		{
			name:          "completed outside window refunds nothing",
			bookingStatus: entity.BookingStatusCompleted,
			paymentStatus: entity.BookingPaid,
			completedAt:   &completedLongAgo,
			wantEligible:  false,
		},
		{
			name:          "completed without timestamp is refused",
			bookingStatus: entity.BookingStatusCompleted,
			paymentStatus: entity.BookingPaid,
			wantEligible:  false,
		},
		{
			name:          "unpaid booking is ineligible",
			bookingStatus: entity.BookingStatusConfirmed,
			paymentStatus: entity.BookingNotPaid,
			wantEligible:  false,
		},
		{
			name:          "awaiting confirmation is ineligible",
			bookingStatus: entity.BookingStatusConfirmed,
			paymentStatus: entity.BookingAwaitingConfirmation,
			wantEligible:  false,
		},
		{
			name:          "already refunded booking is ineligible",
			bookingStatus: entity.BookingStatusCancelled,
			paymentStatus: entity.BookingRefunded,
			wantEligible:  false,
		},
		{
			name:          "partially paid booking is eligible",
			bookingStatus: entity.BookingStatusConfirmed,
			paymentStatus: entity.BookingPartiallyPaid,
			wantEligible:  true,
			wantPercent:   100,
		},
		{
			name:          "active refund blocks a second request",
			bookingStatus: entity.BookingStatusConfirmed,
			paymentStatus: entity.BookingPaid,
			refunds: []*entity.RefundTransaction{
				{Status: entity.RefundStatusProcessing},
			},
			wantEligible: false,
		},
		{
			name:          "terminal refund history does not block",
			bookingStatus: entity.BookingStatusConfirmed,
			paymentStatus: entity.BookingPaid,
			refunds: []*entity.RefundTransaction{
				{Status: entity.RefundStatusCancelled},
				{Status: entity.RefundStatusFailed},
			},
			wantEligible: true,
			wantPercent:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := &entity.Booking{
				Status:        tt.bookingStatus,
				PaymentStatus: tt.paymentStatus,
				CompletedAt:   tt.completedAt,
			}

			got := CheckRefundEligibility(booking, tt.refunds, now, window)

			if got.Eligible != tt.wantEligible {
				t.Errorf("Eligible = %v, want %v (reason: %q)", got.Eligible, tt.wantEligible, got.Reason)
			}
			if got.Percent != tt.wantPercent {
				t.Errorf("Percent = %d, want %d", got.Percent, tt.wantPercent)
			}
			if !got.Eligible && got.Reason == "" {
				t.Error("ineligible result must carry a reason")
			}
		})
	}
}

func TestCheckRefundEligibilityWindowBoundary(t *testing.T) {
	now := time.Now()
	window := 168 * time.Hour

	atBoundary := now.Add(-window)
	booking := &entity.Booking{
		Status:        entity.BookingStatusCompleted,
		PaymentStatus: entity.BookingPaid,
		CompletedAt:   &atBoundary,
	}

	// Exactly at the window edge still refunds.
	got := CheckRefundEligibility(booking, nil, now, window)
	if !got.Eligible || got.Percent != 50 {
		t.Errorf("at boundary: got (%v, %d), want (true, 50)", got.Eligible, got.Percent)
	}

	pastBoundary := now.Add(-window - time.Second)
	booking.CompletedAt = &pastBoundary
	got = CheckRefundEligibility(booking, nil, now, window)
	if got.Eligible {
		t.Error("one second past the window must be ineligible")
	}
}
