package service

import (
	"context"
	"fmt"
	"time"

	"pet-aftercare-be/internal/config"
	"pet-aftercare-be/internal/dto"
	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/pkg/logger"
	"pet-aftercare-be/internal/repository/specification"
	"pet-aftercare-be/internal/repository/unitofwork"
	"pet-aftercare-be/pkg/events"
	"pet-aftercare-be/pkg/gateway"
)

type IRefundRetryService interface {
	// RetryFailedRefunds re-dispatches every failed refund still marked
	// retryable. Concurrent runs are safe: each refund is claimed with a
	// conditional update before dispatch, so two coordinators never send
	// the same refund twice.
	RetryFailedRefunds(ctx context.Context) (*dto.RetryRunResponse, error)
}

type refundRetryService struct {
	repoFactory unitofwork.RepositoryFactory
	gw          gateway.Client
	publisher   IPublisherService
	log         logger.ILogger
	cfg         *config.Config
}

func NewRefundRetryService(
	repoFactory unitofwork.RepositoryFactory,
	gw gateway.Client,
	publisher IPublisherService,
	log logger.ILogger,
	cfg *config.Config,
) IRefundRetryService {
	return &refundRetryService{
		repoFactory: repoFactory,
		gw:          gw,
		publisher:   publisher,
		log:         log,
		cfg:         cfg,
	}
}

func (s *refundRetryService) RetryFailedRefunds(ctx context.Context) (*dto.RetryRunResponse, error) {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	candidates, err := uow.RefundRepository().FindAll(ctx, specification.RetryableRefunds{})
	if err != nil {
		return nil, fmt.Errorf("failed to load retryable refunds: %w", err)
	}

	resp := &dto.RetryRunResponse{}
	for _, refund := range candidates {
		resp.Attempted++
		if s.retryOne(ctx, uow, refund) {
			resp.Succeeded++
		} else {
			resp.StillFailed++
		}
	}

	if resp.Attempted > 0 {
		s.log.Info("refund_retry", "Retry run finished", map[string]interface{}{
			"attempted":    resp.Attempted,
			"succeeded":    resp.Succeeded,
			"still_failed": resp.StillFailed,
		})
	}
	return resp, nil
}

// retryOne re-dispatches a single failed refund and reports whether it
// ended up processed.
func (s *refundRetryService) retryOne(ctx context.Context, uow unitofwork.UnitOfWork, refund *entity.RefundTransaction) bool {
	paymentTx, err := uow.PaymentRepository().FindOne(ctx,
		specification.ByBooking{BookingID: refund.BookingId},
		specification.SucceededPayments{},
	)
	if err != nil {
		s.log.Error("refund_retry", "Failed to load settled payment", map[string]interface{}{
			"refund_id": refund.Id.String(),
			"error":     err.Error(),
		})
		return false
	}
	if paymentTx == nil || paymentTx.PaymentMethod != entity.PaymentMethodGateway {
		// No gateway charge to refund against; this row can never succeed
		// automatically.
		s.giveUp(ctx, uow, refund, "no settled gateway payment found for this booking")
		return false
	}

	claimed, err := uow.RefundRepository().ClaimForRetry(ctx, refund.Id)
	if err != nil {
		s.log.Error("refund_retry", "Failed to claim refund for retry", map[string]interface{}{
			"refund_id": refund.Id.String(),
			"error":     err.Error(),
		})
		return false
	}
	if !claimed {
		// Another coordinator run or a staff action got here first.
		return false
	}

	result := dispatchGatewayRefund(ctx, s.gw, refund, paymentTx.Id.String())

	switch result.Outcome {
	case dispatchProcessed, dispatchInFlight:
		return s.settle(ctx, uow, refund, result)
	case dispatchUnknown:
		// Leave the row in processing; reconciliation will resolve it.
		s.log.Warn("refund_retry", "Refund outcome unknown after retry", map[string]interface{}{
			"refund_id": refund.Id.String(),
			"reason":    result.FailureReason,
		})
		return false
	case dispatchPermanent:
		s.giveUp(ctx, uow, refund, result.FailureReason)
		return false
	default: // dispatchTransient
		refund.RetryCount++
		if refund.RetryCount >= s.cfg.Refund.MaxRetries {
			s.giveUp(ctx, uow, refund,
				fmt.Sprintf("still failing after %d attempts: %s", refund.RetryCount, result.FailureReason))
			return false
		}
		refund.Status = entity.RefundStatusFailed
		refund.Retryable = true
		refund.FailureReason = &result.FailureReason
		refund.Notes = appendNote(refund.Notes,
			fmt.Sprintf("retry %d failed: %s", refund.RetryCount, result.FailureReason))
		if uerr := uow.RefundRepository().Update(ctx, refund); uerr != nil {
			s.log.Error("refund_retry", "Failed to record retry failure", map[string]interface{}{
				"refund_id": refund.Id.String(),
				"error":     uerr.Error(),
			})
		}
		return false
	}
}

func (s *refundRetryService) settle(ctx context.Context, uow unitofwork.UnitOfWork, refund *entity.RefundTransaction, result dispatchResult) bool {
	now := time.Now()
	refund.Status = entity.RefundStatusProcessed
	refund.ProcessedAt = &now
	if result.GatewayRefundId != "" {
		refund.GatewayRefundId = &result.GatewayRefundId
	}
	if result.Outcome == dispatchInFlight {
		refund.Status = entity.RefundStatusProcessing
		refund.ProcessedAt = nil
	}

	if err := uow.RefundRepository().Update(ctx, refund); err != nil {
		s.log.Error("refund_retry", "Failed to settle retried refund", map[string]interface{}{
			"refund_id": refund.Id.String(),
			"error":     err.Error(),
		})
		return false
	}

	// An accepted-but-unsettled refund still counts as a successful retry:
	// the row left the failed state and the webhook finishes the job.
	if refund.Status == entity.RefundStatusProcessed {
		s.updateBookingAfterRefund(ctx, uow, refund)

		s.publisher.Publish(ctx, events.TypeRefundProcessed, map[string]interface{}{
			"booking_id": refund.BookingId.String(),
			"refund_id":  refund.Id.String(),
			"amount":     refund.Amount,
		})
	}
	return true
}

// giveUp marks a refund permanently failed so staff pick it up manually.
func (s *refundRetryService) giveUp(ctx context.Context, uow unitofwork.UnitOfWork, refund *entity.RefundTransaction, reason string) {
	refund.Status = entity.RefundStatusFailed
	refund.Retryable = false
	refund.FailureReason = &reason
	refund.Notes = appendNote(refund.Notes, "manual processing required: "+reason)

	if err := uow.RefundRepository().Update(ctx, refund); err != nil {
		s.log.Error("refund_retry", "Failed to mark refund for manual processing", map[string]interface{}{
			"refund_id": refund.Id.String(),
			"error":     err.Error(),
		})
		return
	}

	s.publisher.Publish(ctx, events.TypeRefundFailed, map[string]interface{}{
		"booking_id": refund.BookingId.String(),
		"refund_id":  refund.Id.String(),
		"reason":     reason,
		"retryable":  false,
	})
}

func (s *refundRetryService) updateBookingAfterRefund(ctx context.Context, uow unitofwork.UnitOfWork, refund *entity.RefundTransaction) {
	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: refund.BookingId})
	if err != nil || booking == nil {
		return
	}

	payments, err := uow.PaymentRepository().FindAll(ctx,
		specification.ByBooking{BookingID: refund.BookingId},
		specification.SucceededPayments{},
	)
	if err != nil {
		return
	}
	refunds, err := uow.RefundRepository().FindAll(ctx, specification.ByBooking{BookingID: refund.BookingId})
	if err != nil {
		return
	}

	var net float64
	for _, p := range payments {
		net += p.Amount
	}
	for _, r := range refunds {
		if r.Status == entity.RefundStatusProcessed {
			net -= r.Amount
		}
	}

	// Partial refunds leave the booking alone; only a fully refunded balance
	// flips it.
	if net > 0 {
		return
	}
	booking.PaymentStatus = entity.BookingRefunded
	if err := uow.BookingRepository().UpdatePaymentStatus(ctx, booking); err != nil {
		s.log.Error("refund_retry", "Failed to update booking payment status", map[string]interface{}{
			"booking_id": booking.Id.String(),
			"error":      err.Error(),
		})
	}
}
