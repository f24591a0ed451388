package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
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
	gocache "github.com/patrickmn/go-cache"
)

const (
	gatewayMinAmount = 1
	gatewayMaxAmount = 50000
)

type IPaymentService interface {
	// CreatePayment starts a payment attempt for a booking. Gateway payments
	// call the gateway before anything is persisted: if the gateway rejects
	// the charge no ledger row is written.
	CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error)

	// GetPaymentStatus returns the booking's payment state. Non-terminal
	// gateway attempts are reconciled against the gateway on read.
	GetPaymentStatus(ctx context.Context, bookingId uuid.UUID) (*dto.PaymentStatusResponse, error)

	// ConfirmCashPayment is the staff-side acknowledgement that cash changed
	// hands. Only a pending cash attempt can be confirmed.
	ConfirmCashPayment(ctx context.Context, transactionId uuid.UUID) (*dto.PaymentResponse, error)

	// HandleNotification processes a raw gateway webhook body. It is safe to
	// call with duplicates and out-of-order deliveries.
	HandleNotification(ctx context.Context, raw []byte) error
}

type paymentService struct {
	repoFactory unitofwork.RepositoryFactory
	gw          gateway.Client
	publisher   IPublisherService
	log         logger.ILogger
	cfg         *config.Config
	// seenEvents dedupes webhook deliveries inside a single process; the
	// compare-before-update check below is the durable guard.
	seenEvents *gocache.Cache
}

func NewPaymentService(
	repoFactory unitofwork.RepositoryFactory,
	gw gateway.Client,
	publisher IPublisherService,
	log logger.ILogger,
	cfg *config.Config,
) IPaymentService {
	return &paymentService{
		repoFactory: repoFactory,
		gw:          gw,
		publisher:   publisher,
		log:         log,
		cfg:         cfg,
		seenEvents:  gocache.New(30*time.Minute, 10*time.Minute),
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	method := entity.PaymentMethod(req.PaymentMethod)
	if method != entity.PaymentMethodGateway && method != entity.PaymentMethodCash {
		return nil, ErrUnsupportedMethod
	}
	if method == entity.PaymentMethodGateway &&
		(req.Amount < gatewayMinAmount || req.Amount > gatewayMaxAmount) {
		return nil, ErrAmountOutOfRange
	}

	uow := s.repoFactory.NewUnitOfWork(ctx)

	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: req.BookingId})
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	latest, err := uow.PaymentRepository().FindLatestByBooking(ctx, booking.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment history: %w", err)
	}
	if latest != nil && (latest.Status == entity.PaymentTxSucceeded || !latest.Status.IsTerminal()) {
		return nil, ErrPaymentInProgress
	}

	if method == entity.PaymentMethodCash {
		return s.recordCashPayment(ctx, uow, booking, req.Amount)
	}
	return s.createGatewayPayment(ctx, uow, booking, req.Amount)
}

// recordCashPayment opens a cash attempt. The row stays pending until staff
// confirm the money actually changed hands; promising a settlement the
// system has not witnessed would put the ledger ahead of reality.
func (s *paymentService) recordCashPayment(ctx context.Context, uow unitofwork.UnitOfWork, booking *entity.Booking, amount float64) (*dto.PaymentResponse, error) {
	tx := &entity.PaymentTransaction{
		Id:            uuid.New(),
		BookingId:     booking.Id,
		Amount:        amount,
		Currency:      booking.Currency,
		PaymentMethod: entity.PaymentMethodCash,
		Status:        entity.PaymentTxPending,
		Provider:      entity.ProviderManual,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.PaymentRepository().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record cash payment: %w", err)
	}

	booking.PaymentStatus = entity.BookingAwaitingConfirmation
	if err := uow.BookingRepository().UpdatePaymentStatus(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to update booking payment status: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypePaymentCreated, map[string]interface{}{
		"booking_id":     booking.Id.String(),
		"transaction_id": tx.Id.String(),
		"customer_email": booking.CustomerEmail,
		"amount":         amount,
		"payment_method": string(entity.PaymentMethodCash),
	})

	return s.toPaymentResponse(tx), nil
}

// ConfirmCashPayment settles a pending cash attempt. The compare-and-set
// keeps double confirmations from firing the side effects twice.
func (s *paymentService) ConfirmCashPayment(ctx context.Context, transactionId uuid.UUID) (*dto.PaymentResponse, error) {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	tx, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: transactionId})
	if err != nil {
		return nil, fmt.Errorf("failed to load payment transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrPaymentNotFound
	}
	if tx.PaymentMethod != entity.PaymentMethodCash {
		return nil, ErrUnsupportedMethod
	}
	if tx.Status != entity.PaymentTxPending {
		return nil, ErrInvalidTransition
	}

	swapped, err := uow.PaymentRepository().UpdateStatusIf(ctx, tx.Id, entity.PaymentTxPending, entity.PaymentTxSucceeded, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm cash payment: %w", err)
	}
	if !swapped {
		return nil, ErrInvalidTransition
	}

	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: tx.BookingId})
	if err != nil || booking == nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	tx.Status = entity.PaymentTxSucceeded
	s.applyBookingSideEffects(ctx, uow, booking, tx, "")

	return s.toPaymentResponse(tx), nil
}

// createGatewayPayment opens a hosted checkout. The gateway is called
// before the row is persisted: a gateway rejection leaves no trace, and a
// persistence failure after a gateway success is logged loudly because it
// means the two ledgers disagree.
func (s *paymentService) createGatewayPayment(ctx context.Context, uow unitofwork.UnitOfWork, booking *entity.Booking, amount float64) (*dto.PaymentResponse, error) {
	txId := uuid.New()

	source, err := s.gw.CreateSource(ctx, gateway.CreateSourceInput{
		OrderId:       txId.String(),
		Amount:        amount,
		Currency:      booking.Currency,
		CustomerName:  booking.CustomerName,
		CustomerEmail: booking.CustomerEmail,
		Description:   fmt.Sprintf("Payment for %s", booking.ServiceName),
		RedirectUrl:   fmt.Sprintf("%s/bookings/%s/payment", s.cfg.App.ClientURL, booking.Id),
	})
	if err != nil {
		s.log.Warn("payment", "Gateway rejected payment creation", map[string]interface{}{
			"booking_id": booking.Id.String(),
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("gateway payment creation failed: %w", err)
	}

	checkoutUrl := source.CheckoutUrl
	tx := &entity.PaymentTransaction{
		Id:              txId,
		BookingId:       booking.Id,
		Amount:          amount,
		Currency:        booking.Currency,
		PaymentMethod:   entity.PaymentMethodGateway,
		Status:          entity.PaymentTxPending,
		Provider:        entity.ProviderGateway,
		GatewaySourceId: &source.Id,
		CheckoutUrl:     &checkoutUrl,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.PaymentRepository().Create(ctx, tx); err != nil {
		s.logInconsistency(booking.Id, txId, "payment row persistence failed after gateway accepted the charge", err)
		return nil, fmt.Errorf("failed to persist payment transaction: %w", err)
	}

	booking.PaymentStatus = entity.BookingAwaitingConfirmation
	if err := uow.BookingRepository().UpdatePaymentStatus(ctx, booking); err != nil {
		s.logInconsistency(booking.Id, txId, "booking status update failed after gateway accepted the charge", err)
		return nil, fmt.Errorf("failed to update booking payment status: %w", err)
	}

	if err := uow.Commit(); err != nil {
		s.logInconsistency(booking.Id, txId, "commit failed after gateway accepted the charge", err)
		return nil, err
	}

	s.publisher.Publish(ctx, events.TypePaymentCreated, map[string]interface{}{
		"booking_id":     booking.Id.String(),
		"transaction_id": tx.Id.String(),
		"customer_email": booking.CustomerEmail,
		"amount":         amount,
		"checkout_url":   checkoutUrl,
	})

	return s.toPaymentResponse(tx), nil
}

func (s *paymentService) GetPaymentStatus(ctx context.Context, bookingId uuid.UUID) (*dto.PaymentStatusResponse, error) {
	uow := s.repoFactory.NewUnitOfWork(ctx)

	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: bookingId})
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	tx, err := uow.PaymentRepository().FindLatestByBooking(ctx, bookingId)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment history: %w", err)
	}
	if tx == nil {
		// No attempt yet: the booking record is the only source of truth.
		return &dto.PaymentStatusResponse{
			BookingId:     bookingId,
			PaymentStatus: string(booking.PaymentStatus),
		}, nil
	}

	if tx.PaymentMethod == entity.PaymentMethodGateway && !tx.Status.IsTerminal() {
		tx = s.reconcile(ctx, uow, booking, tx)
	}

	return &dto.PaymentStatusResponse{
		BookingId:     bookingId,
		PaymentStatus: string(booking.PaymentStatus),
		Transaction: &dto.PaymentTransactionInfo{
			TransactionId: tx.Id,
			Amount:        tx.Amount,
			PaymentMethod: string(tx.PaymentMethod),
			Status:        string(tx.Status),
			CheckoutUrl:   tx.CheckoutUrl,
			CreatedAt:     tx.CreatedAt,
		},
	}, nil
}

// reconcile pulls the gateway's view of a non-terminal attempt and applies
// it with a compare-and-set so a concurrent webhook cannot double-fire the
// side effects. A gateway outage degrades to serving the stored state.
func (s *paymentService) reconcile(ctx context.Context, uow unitofwork.UnitOfWork, booking *entity.Booking, tx *entity.PaymentTransaction) *entity.PaymentTransaction {
	source, err := s.gw.RetrieveSource(ctx, tx.Id.String())
	if err != nil {
		s.log.Warn("payment", "Gateway status pull failed, serving stored state", map[string]interface{}{
			"transaction_id": tx.Id.String(),
			"error":          err.Error(),
		})
		return tx
	}

	newStatus := entity.PaymentTxStatus(source.Status)
	if newStatus == tx.Status {
		return tx
	}

	var providerTxId *string
	if newStatus == entity.PaymentTxSucceeded && source.Id != "" {
		providerTxId = &source.Id
	}

	swapped, err := uow.PaymentRepository().UpdateStatusIf(ctx, tx.Id, tx.Status, newStatus, providerTxId)
	if err != nil {
		s.log.Error("payment", "Reconciliation update failed", map[string]interface{}{
			"transaction_id": tx.Id.String(),
			"error":          err.Error(),
		})
		return tx
	}
	if !swapped {
		// Lost the race to a webhook; re-read and serve whatever won.
		if fresh, ferr := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: tx.Id}); ferr == nil && fresh != nil {
			return fresh
		}
		return tx
	}

	tx.Status = newStatus
	tx.ProviderTransactionId = providerTxId
	s.applyBookingSideEffects(ctx, uow, booking, tx, "")
	return tx
}

func (s *paymentService) HandleNotification(ctx context.Context, raw []byte) error {
	var event gateway.WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	if !event.VerifySignature(s.cfg.Gateway.ServerKey) {
		s.log.Warn("payment", "Rejected webhook with invalid signature", map[string]interface{}{
			"order_id": event.OrderId,
		})
		return ErrInvalidSignature
	}

	dedupeKey := event.OrderId + "|" + event.TransactionStatus + "|" + event.TransactionId
	if _, found := s.seenEvents.Get(dedupeKey); found {
		return nil
	}

	uow := s.repoFactory.NewUnitOfWork(ctx)

	// Audit first: every verified notification is kept verbatim, including
	// the ones the engine ignores.
	if err := uow.GatewayEventRepository().Create(ctx, &entity.GatewayEvent{
		Id:        uuid.New(),
		OrderId:   event.OrderId,
		EventType: event.TransactionStatus,
		Payload:   raw,
	}); err != nil {
		s.log.Error("payment", "Failed to persist gateway event audit row", map[string]interface{}{
			"order_id": event.OrderId,
			"error":    err.Error(),
		})
	}

	if !event.Known() {
		s.log.Info("payment", "Ignoring unknown gateway event type", map[string]interface{}{
			"order_id": event.OrderId,
			"type":     event.TransactionStatus,
		})
		s.seenEvents.Set(dedupeKey, struct{}{}, gocache.DefaultExpiration)
		return nil
	}

	txId, err := uuid.Parse(event.OrderId)
	if err != nil {
		s.log.Warn("payment", "Webhook order id is not a known transaction", map[string]interface{}{
			"order_id": event.OrderId,
		})
		return nil
	}

	tx, err := uow.PaymentRepository().FindOne(ctx, specification.ByID{ID: txId})
	if err != nil {
		return fmt.Errorf("failed to load payment transaction: %w", err)
	}
	if tx == nil {
		s.log.Warn("payment", "Webhook references an unknown transaction", map[string]interface{}{
			"order_id": event.OrderId,
		})
		return nil
	}

	if gateway.IsRefundEvent(event.TransactionStatus) {
		err = s.finalizeRefundFromWebhook(ctx, uow, tx, &event)
	} else {
		err = s.applyWebhookStatus(ctx, uow, tx, &event)
	}
	if err != nil {
		return err
	}

	s.seenEvents.Set(dedupeKey, struct{}{}, gocache.DefaultExpiration)
	return nil
}

// applyWebhookStatus moves the transaction to the notified status. Stale
// and duplicate deliveries are detected by comparing before updating; a
// terminal row never changes again.
func (s *paymentService) applyWebhookStatus(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.PaymentTransaction, event *gateway.WebhookEvent) error {
	newStatus := entity.PaymentTxStatus(gateway.MapStatus(event.TransactionStatus))
	if newStatus == tx.Status {
		return nil
	}
	if tx.Status.IsTerminal() {
		s.log.Info("payment", "Ignoring webhook for settled transaction", map[string]interface{}{
			"transaction_id": tx.Id.String(),
			"stored":         string(tx.Status),
			"notified":       string(newStatus),
		})
		return nil
	}

	var providerTxId *string
	if newStatus == entity.PaymentTxSucceeded && event.TransactionId != "" {
		providerTxId = &event.TransactionId
	}

	swapped, err := uow.PaymentRepository().UpdateStatusIf(ctx, tx.Id, tx.Status, newStatus, providerTxId)
	if err != nil {
		return fmt.Errorf("failed to apply webhook status: %w", err)
	}
	if !swapped {
		// A concurrent delivery or poll already moved the row.
		return nil
	}

	booking, err := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: tx.BookingId})
	if err != nil || booking == nil {
		return fmt.Errorf("failed to load booking for webhook side effects: %w", err)
	}

	tx.Status = newStatus
	tx.ProviderTransactionId = providerTxId

	failureReason := ""
	if newStatus == entity.PaymentTxFailed {
		failureReason = event.TransactionStatus
	}
	s.applyBookingSideEffects(ctx, uow, booking, tx, failureReason)
	return nil
}

// finalizeRefundFromWebhook settles the in-flight refund once the gateway
// confirms the funds went back.
func (s *paymentService) finalizeRefundFromWebhook(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.PaymentTransaction, event *gateway.WebhookEvent) error {
	refund, err := uow.RefundRepository().FindOne(ctx,
		specification.ByBooking{BookingID: tx.BookingId},
		specification.ActiveRefund{},
	)
	if err != nil {
		return fmt.Errorf("failed to load active refund: %w", err)
	}
	if refund == nil {
		s.log.Info("payment", "Refund settlement with no active refund, already finalized", map[string]interface{}{
			"booking_id": tx.BookingId.String(),
		})
		return nil
	}

	now := time.Now()
	refund.Status = entity.RefundStatusProcessed
	refund.ProcessedAt = &now
	if event.TransactionId != "" {
		refund.GatewayRefundId = &event.TransactionId
	}
	if err := uow.RefundRepository().Update(ctx, refund); err != nil {
		return fmt.Errorf("failed to finalize refund: %w", err)
	}

	if event.TransactionStatus == "refund" {
		booking, berr := uow.BookingRepository().FindOne(ctx, specification.ByID{ID: tx.BookingId})
		if berr == nil && booking != nil {
			booking.PaymentStatus = entity.BookingRefunded
			if uerr := uow.BookingRepository().UpdatePaymentStatus(ctx, booking); uerr != nil {
				s.log.Error("payment", "Failed to mark booking refunded", map[string]interface{}{
					"booking_id": booking.Id.String(),
					"error":      uerr.Error(),
				})
			}
		}
	}

	s.publisher.Publish(ctx, events.TypeRefundProcessed, map[string]interface{}{
		"booking_id": tx.BookingId.String(),
		"refund_id":  refund.Id.String(),
		"amount":     refund.Amount,
	})
	return nil
}

// applyBookingSideEffects mirrors a transaction transition onto the booking
// and announces it. Called exactly once per transition because every caller
// goes through a compare-and-set first.
func (s *paymentService) applyBookingSideEffects(ctx context.Context, uow unitofwork.UnitOfWork, booking *entity.Booking, tx *entity.PaymentTransaction, failureReason string) {
	var bookingStatus entity.BookingPaymentStatus
	switch tx.Status {
	case entity.PaymentTxSucceeded:
		bookingStatus = entity.BookingPaid
	case entity.PaymentTxFailed:
		bookingStatus = entity.BookingPaymentFailed
	case entity.PaymentTxCancelled:
		bookingStatus = entity.BookingNotPaid
	default:
		bookingStatus = entity.BookingAwaitingConfirmation
	}

	booking.PaymentStatus = bookingStatus
	if err := uow.BookingRepository().UpdatePaymentStatus(ctx, booking); err != nil {
		s.log.Error("payment", "Failed to update booking payment status", map[string]interface{}{
			"booking_id": booking.Id.String(),
			"error":      err.Error(),
		})
	}

	switch tx.Status {
	case entity.PaymentTxSucceeded:
		s.publisher.Publish(ctx, events.TypePaymentSucceeded, map[string]interface{}{
			"booking_id":     booking.Id.String(),
			"transaction_id": tx.Id.String(),
			"customer_email": booking.CustomerEmail,
			"amount":         tx.Amount,
		})
	case entity.PaymentTxFailed:
		s.publisher.Publish(ctx, events.TypePaymentFailed, map[string]interface{}{
			"booking_id":     booking.Id.String(),
			"transaction_id": tx.Id.String(),
			"customer_email": booking.CustomerEmail,
			"reason":         failureReason,
		})
	}
}

func (s *paymentService) logInconsistency(bookingId, txId uuid.UUID, what string, err error) {
	s.log.Error("payment", "FINANCIAL INCONSISTENCY: "+what, map[string]interface{}{
		"booking_id":     bookingId.String(),
		"transaction_id": txId.String(),
		"error":          err.Error(),
		"action":         "reconcile against gateway dashboard",
	})
}

func (s *paymentService) toPaymentResponse(tx *entity.PaymentTransaction) *dto.PaymentResponse {
	return &dto.PaymentResponse{
		TransactionId: tx.Id,
		BookingId:     tx.BookingId,
		Amount:        tx.Amount,
		Currency:      strings.ToUpper(tx.Currency),
		PaymentMethod: string(tx.PaymentMethod),
		Status:        string(tx.Status),
		CheckoutUrl:   tx.CheckoutUrl,
	}
}
