package service

import (
	"context"
	"errors"
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

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	manualRefundInstructions = "Cash payment detected. The refund is recorded as processed; return the money to the customer in person."
	refundLockTTL            = 30 * time.Second
)

type IRefundService interface {
	// ProcessRefund runs the full refund flow: eligibility, amount policy,
	// ledger row, then automatic gateway dispatch or manual routing.
	// Expected business rejections come back in the response with
	// Success=false; only unexpected failures return an error.
	ProcessRefund(ctx context.Context, req *dto.RefundRequest, initiatedBy uuid.UUID, initiatorType entity.InitiatorType) (*dto.RefundResponse, error)

	// CheckEligibility answers whether a refund could be requested right now
	// and for how much, without creating anything.
	CheckEligibility(ctx context.Context, bookingId uuid.UUID) (*dto.EligibilityResponse, error)

	// DenyRefund rejects a pending refund. Only pending rows can be denied.
	DenyRefund(ctx context.Context, refundId uuid.UUID, notes string) error

	// CompleteRefund marks an in-flight refund as settled, used by staff for
	// manual refunds and for gateway refunds confirmed out of band.
	CompleteRefund(ctx context.Context, refundId uuid.UUID) error

	// ListRefunds returns the staff-side refund queue, newest first.
	ListRefunds(ctx context.Context, status string, limit, offset int) ([]*dto.RefundListItem, error)
}

type refundService struct {
	repoFactory unitofwork.RepositoryFactory
	gw          gateway.Client
	publisher   IPublisherService
	log         logger.ILogger
	cfg         *config.Config
	// rdb serializes concurrent refund requests per booking. It is advisory;
	// the partial unique index on active refunds is the durable guard, and a
	// nil client just means the index does all the work.
	rdb *redis.Client
}

func NewRefundService(
	repoFactory unitofwork.RepositoryFactory,
	gw gateway.Client,
	publisher IPublisherService,
	log logger.ILogger,
	cfg *config.Config,
	rdb *redis.Client,
) IRefundService {
	return &refundService{
		repoFactory: repoFactory,
		gw:          gw,
		publisher:   publisher,
		log:         log,
		cfg:         cfg,
		rdb:         rdb,
	}
}

func (s *refundService) ProcessRefund(ctx context.Context, req *dto.RefundRequest, initiatedBy uuid.UUID, initiatorType entity.InitiatorType) (*dto.RefundResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !entity.ValidRefundReason(entity.RefundReason(req.Reason)) {
		return nil, ErrInvalidReason
	}

	if !s.acquireLock(ctx, req.BookingId) {
		return &dto.RefundResponse{
			BookingId: req.BookingId,
			Error:     "a refund for this booking is already being processed",
		}, nil
	}
	defer s.releaseLock(ctx, req.BookingId)

	uow := s.repoFactory.NewUnitOfWork(ctx)

	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: req.BookingId})
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	refunds, err := uow.RefundRepository().FindAll(ctx, specification.ByBooking{BookingID: booking.Id})
	if err != nil {
		return nil, fmt.Errorf("failed to load refund history: %w", err)
	}

	window := time.Duration(s.cfg.Refund.CompletedWindowHours) * time.Hour
	eligibility := CheckRefundEligibility(booking, refunds, time.Now(), window)
	if !eligibility.Eligible {
		return &dto.RefundResponse{
			BookingId: booking.Id,
			Error:     eligibility.Reason,
		}, nil
	}

	paymentTx, netPaid, err := s.settledPayment(ctx, uow, booking.Id, refunds)
	if err != nil {
		return nil, err
	}
	if paymentTx == nil {
		return &dto.RefundResponse{
			BookingId: booking.Id,
			Error:     "no settled payment exists for this booking",
		}, nil
	}

	maxRefundable := netPaid * float64(eligibility.Percent) / 100
	if req.Amount > maxRefundable {
		return &dto.RefundResponse{
			BookingId: booking.Id,
			Error:     fmt.Sprintf("amount exceeds the refundable balance of %.2f", maxRefundable),
		}, nil
	}

	refund := &entity.RefundTransaction{
		Id:              uuid.New(),
		BookingId:       booking.Id,
		Amount:          req.Amount,
		Currency:        booking.Currency,
		Reason:          entity.RefundReason(req.Reason),
		Status:          entity.RefundStatusPending,
		PaymentMethod:   paymentTx.PaymentMethod,
		Provider:        paymentTx.Provider,
		Notes:           req.Notes,
		InitiatedBy:     initiatedBy,
		InitiatedByType: initiatorType,
	}

	// The pending row is committed before any gateway call so the dispatch
	// always operates on durable state. The partial unique index turns a
	// concurrent duplicate into ErrDuplicatedKey here.
	if err := s.persistPendingRefund(ctx, uow, refund); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &dto.RefundResponse{
				BookingId: booking.Id,
				Error:     "a refund is already in progress for this booking",
			}, nil
		}
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypeRefundRequested, map[string]interface{}{
		"booking_id":     booking.Id.String(),
		"refund_id":      refund.Id.String(),
		"customer_email": booking.CustomerEmail,
		"amount":         refund.Amount,
		"reason":         req.Reason,
	})

	if refund.PaymentMethod == entity.PaymentMethodCash {
		// Manual funds movement happens outside the system, so there is
		// nothing to wait on: the row settles immediately, no gateway call.
		if err := s.markProcessed(ctx, s.repoFactory.NewUnitOfWork(ctx), booking, refund, "", netPaid); err != nil {
			return nil, err
		}
		return &dto.RefundResponse{
			Success:                  true,
			RefundId:                 &refund.Id,
			BookingId:                booking.Id,
			Amount:                   refund.Amount,
			Status:                   string(entity.RefundStatusProcessed),
			RefundType:               "manual",
			RequiresManualProcessing: true,
			Instructions:             manualRefundInstructions,
		}, nil
	}

	return s.dispatchAndApply(ctx, booking, refund, paymentTx, netPaid)
}

// settledPayment returns the settled gateway or cash attempt for the
// booking, plus the net refundable amount (settled minus already refunded).
func (s *refundService) settledPayment(ctx context.Context, uow unitofwork.UnitOfWork, bookingId uuid.UUID, refunds []*entity.RefundTransaction) (*entity.PaymentTransaction, float64, error) {
	payments, err := uow.PaymentRepository().FindAll(ctx,
		specification.ByBooking{BookingID: bookingId},
		specification.SucceededPayments{},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load settled payments: %w", err)
	}
	if len(payments) == 0 {
		return nil, 0, nil
	}

	var paid float64
	for _, p := range payments {
		paid += p.Amount
	}
	for _, r := range refunds {
		if r.Status == entity.RefundStatusProcessed {
			paid -= r.Amount
		}
	}

	// Most recent settled attempt carries the gateway identifiers.
	latest := payments[0]
	for _, p := range payments[1:] {
		if p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	return latest, paid, nil
}

func (s *refundService) persistPendingRefund(ctx context.Context, uow unitofwork.UnitOfWork, refund *entity.RefundTransaction) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.RefundRepository().Create(ctx, refund); err != nil {
		return err
	}
	return uow.Commit()
}

// dispatchAndApply runs the gateway refund and writes the outcome back to
// the ledger.
func (s *refundService) dispatchAndApply(ctx context.Context, booking *entity.Booking, refund *entity.RefundTransaction, paymentTx *entity.PaymentTransaction, netPaid float64) (*dto.RefundResponse, error) {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	refund.Status = entity.RefundStatusProcessing
	if err := uow.RefundRepository().Update(ctx, refund); err != nil {
		return nil, fmt.Errorf("failed to mark refund processing: %w", err)
	}

	result := dispatchGatewayRefund(ctx, s.gw, refund, paymentTx.Id.String())

	switch result.Outcome {
	case dispatchProcessed:
		if err := s.markProcessed(ctx, uow, booking, refund, result.GatewayRefundId, netPaid); err != nil {
			return nil, err
		}
		return &dto.RefundResponse{
			Success:   true,
			RefundId:  &refund.Id,
			BookingId: booking.Id,
			Amount:    refund.Amount,
			Status:    string(entity.RefundStatusProcessed),
			RefundType: "automatic",
		}, nil

	case dispatchInFlight:
		if result.GatewayRefundId != "" {
			refund.GatewayRefundId = &result.GatewayRefundId
			if err := uow.RefundRepository().Update(ctx, refund); err != nil {
				s.log.Error("refund", "Failed to store gateway refund id", map[string]interface{}{
					"refund_id": refund.Id.String(),
					"error":     err.Error(),
				})
			}
		}
		return &dto.RefundResponse{
			Success:    true,
			RefundId:   &refund.Id,
			BookingId:  booking.Id,
			Amount:     refund.Amount,
			Status:     string(entity.RefundStatusProcessing),
			RefundType: "automatic",
			Message:    "refund accepted by the gateway, awaiting settlement",
		}, nil

	case dispatchUnknown:
		// Timeout: the gateway may or may not hold the refund. The row stays
		// in processing and reconciliation settles it.
		s.log.Warn("refund", "Gateway refund outcome unknown, awaiting reconciliation", map[string]interface{}{
			"refund_id": refund.Id.String(),
			"reason":    result.FailureReason,
		})
		return &dto.RefundResponse{
			Success:    true,
			RefundId:   &refund.Id,
			BookingId:  booking.Id,
			Amount:     refund.Amount,
			Status:     string(entity.RefundStatusProcessing),
			RefundType: "automatic",
			Message:    "refund submitted, confirmation pending",
		}, nil

	case dispatchTransient:
		if err := s.markFailed(ctx, uow, refund, result.FailureReason, true); err != nil {
			return nil, err
		}
		return &dto.RefundResponse{
			Success:   false,
			RefundId:  &refund.Id,
			BookingId: booking.Id,
			Amount:    refund.Amount,
			Status:    string(entity.RefundStatusFailed),
			Error:     result.FailureReason,
			Message:   "gateway is temporarily unavailable, the refund will be retried automatically",
		}, nil

	default: // dispatchPermanent
		if err := s.markFailed(ctx, uow, refund, result.FailureReason, false); err != nil {
			return nil, err
		}
		return &dto.RefundResponse{
			Success:                  false,
			RefundId:                 &refund.Id,
			BookingId:                booking.Id,
			Amount:                   refund.Amount,
			Status:                   string(entity.RefundStatusFailed),
			Error:                    result.FailureReason,
			RequiresManualProcessing: true,
			Instructions:             "The gateway rejected this refund. Return the funds through a manual transfer and record it here.",
		}, nil
	}
}

func (s *refundService) markProcessed(ctx context.Context, uow unitofwork.UnitOfWork, booking *entity.Booking, refund *entity.RefundTransaction, gatewayRefundId string, netPaid float64) error {
	now := time.Now()
	refund.Status = entity.RefundStatusProcessed
	refund.ProcessedAt = &now
	if gatewayRefundId != "" {
		refund.GatewayRefundId = &gatewayRefundId
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.RefundRepository().Update(ctx, refund); err != nil {
		return fmt.Errorf("failed to mark refund processed: %w", err)
	}

	// Only a full refund touches the booking; partial refunds live purely
	// on the ledger.
	if refund.Amount >= netPaid {
		booking.PaymentStatus = entity.BookingRefunded
		if err := uow.BookingRepository().UpdatePaymentStatus(ctx, booking); err != nil {
			return fmt.Errorf("failed to update booking payment status: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.TypeRefundProcessed, map[string]interface{}{
		"booking_id":     booking.Id.String(),
		"refund_id":      refund.Id.String(),
		"customer_email": booking.CustomerEmail,
		"amount":         refund.Amount,
	})
	return nil
}

func (s *refundService) markFailed(ctx context.Context, uow unitofwork.UnitOfWork, refund *entity.RefundTransaction, reason string, retryable bool) error {
	refund.Status = entity.RefundStatusFailed
	refund.Retryable = retryable
	refund.FailureReason = &reason

	if err := uow.RefundRepository().Update(ctx, refund); err != nil {
		return fmt.Errorf("failed to mark refund failed: %w", err)
	}

	s.publisher.Publish(ctx, events.TypeRefundFailed, map[string]interface{}{
		"booking_id": refund.BookingId.String(),
		"refund_id":  refund.Id.String(),
		"reason":     reason,
		"retryable":  retryable,
	})
	return nil
}

func (s *refundService) CheckEligibility(ctx context.Context, bookingId uuid.UUID) (*dto.EligibilityResponse, error) {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: bookingId})
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	refunds, err := uow.RefundRepository().FindAll(ctx, specification.ByBooking{BookingID: bookingId})
	if err != nil {
		return nil, fmt.Errorf("failed to load refund history: %w", err)
	}

	window := time.Duration(s.cfg.Refund.CompletedWindowHours) * time.Hour
	result := CheckRefundEligibility(booking, refunds, time.Now(), window)

	resp := &dto.EligibilityResponse{
		BookingId: bookingId,
		Eligible:  result.Eligible,
		Reason:    result.Reason,
	}
	if result.Eligible {
		_, netPaid, perr := s.settledPayment(ctx, uow, bookingId, refunds)
		if perr != nil {
			return nil, perr
		}
		resp.RefundablePercent = result.Percent
		resp.MaxRefundable = netPaid * float64(result.Percent) / 100
	}
	return resp, nil
}

func (s *refundService) DenyRefund(ctx context.Context, refundId uuid.UUID, notes string) error {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	refund, err := uow.RefundRepository().FindOne(ctx, specification.ByID{ID: refundId})
	if err != nil {
		return fmt.Errorf("failed to load refund: %w", err)
	}
	if refund == nil {
		return ErrRefundNotFound
	}
	if refund.Status != entity.RefundStatusPending {
		return ErrInvalidTransition
	}

	refund.Status = entity.RefundStatusCancelled
	if notes != "" {
		refund.Notes = appendNote(refund.Notes, "denied: "+notes)
	}
	if err := uow.RefundRepository().Update(ctx, refund); err != nil {
		return fmt.Errorf("failed to deny refund: %w", err)
	}

	s.publisher.Publish(ctx, events.TypeRefundDenied, map[string]interface{}{
		"booking_id": refund.BookingId.String(),
		"refund_id":  refund.Id.String(),
		"notes":      notes,
	})
	return nil
}

func (s *refundService) CompleteRefund(ctx context.Context, refundId uuid.UUID) error {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	refund, err := uow.RefundRepository().FindOne(ctx, specification.ByID{ID: refundId})
	if err != nil {
		return fmt.Errorf("failed to load refund: %w", err)
	}
	if refund == nil {
		return ErrRefundNotFound
	}
	if !refund.Status.IsActive() {
		return ErrInvalidTransition
	}

	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: refund.BookingId})
	if err != nil || booking == nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}

	refunds, err := uow.RefundRepository().FindAll(ctx, specification.ByBooking{BookingID: refund.BookingId})
	if err != nil {
		return fmt.Errorf("failed to load refund history: %w", err)
	}
	_, netPaid, err := s.settledPayment(ctx, uow, refund.BookingId, refunds)
	if err != nil {
		return err
	}

	return s.markProcessed(ctx, uow, booking, refund, "", netPaid)
}

func (s *refundService) ListRefunds(ctx context.Context, status string, limit, offset int) ([]*dto.RefundListItem, error) {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	}
	if status != "" {
		specs = append(specs, specification.Filter("status", status))
	}

	refunds, err := uow.RefundRepository().FindAllWithBooking(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}

	items := make([]*dto.RefundListItem, 0, len(refunds))
	for _, r := range refunds {
		item := &dto.RefundListItem{
			Id:            r.Id,
			BookingId:     r.BookingId,
			Amount:        r.Amount,
			Reason:        string(r.Reason),
			Status:        string(r.Status),
			PaymentMethod: string(r.PaymentMethod),
			Retryable:     r.Retryable,
			Notes:         r.Notes,
			CreatedAt:     r.CreatedAt,
			ProcessedAt:   r.ProcessedAt,
		}
		if r.Booking != nil {
			item.CustomerName = r.Booking.CustomerName
			item.ServiceName = r.Booking.ServiceName
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *refundService) acquireLock(ctx context.Context, bookingId uuid.UUID) bool {
	if s.rdb == nil {
		return true
	}
	ok, err := s.rdb.SetNX(ctx, "refund_lock:"+bookingId.String(), 1, refundLockTTL).Result()
	if err != nil {
		// Redis being down must not block refunds; fall through to the index.
		s.log.Warn("refund", "Refund lock unavailable, relying on database constraint", map[string]interface{}{
			"booking_id": bookingId.String(),
			"error":      err.Error(),
		})
		return true
	}
	return ok
}

func (s *refundService) releaseLock(ctx context.Context, bookingId uuid.UUID) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, "refund_lock:"+bookingId.String())
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
