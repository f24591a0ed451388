package service

import (
	"context"
	"testing"
	"time"

	"pet-aftercare-be/internal/dto"
	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/repository/contract"
	"pet-aftercare-be/internal/repository/memory"
	"pet-aftercare-be/internal/repository/specification"
	"pet-aftercare-be/internal/repository/unitofwork"
	"pet-aftercare-be/pkg/events"
	"pet-aftercare-be/pkg/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refundRequestFor(booking *entity.Booking, amount float64) *dto.RefundRequest {
	return &dto.RefundRequest{
		BookingId: booking.Id,
		Amount:    amount,
		Reason:    string(entity.RefundReasonCustomerRequested),
	}
}

func TestProcessRefundAutomaticSettled(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 250), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "automatic", resp.RefundType)
	assert.False(t, resp.RequiresManualProcessing)
	require.NotNil(t, resp.RefundId)

	stored := env.store.Refund(*resp.RefundId)
	assert.Equal(t, entity.RefundStatusProcessed, stored.Status)
	assert.NotNil(t, stored.GatewayRefundId)
	assert.NotNil(t, stored.ProcessedAt)

	// Full refund flips the booking to refunded.
	assert.Equal(t, entity.BookingRefunded, env.store.Booking(booking.Id).PaymentStatus)
	assert.Equal(t, 1, env.publisher.countOf(events.TypeRefundRequested))
	assert.Equal(t, 1, env.publisher.countOf(events.TypeRefundProcessed))
}

func TestProcessRefundPartialIsLedgerOnly(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusConfirmed, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 100), uuid.New(), entity.InitiatorStaff)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, entity.RefundStatusProcessed, env.store.Refund(*resp.RefundId).Status)

	// A partial refund is recorded on the ledger only; the booking keeps
	// its payment status.
	assert.Equal(t, entity.BookingPaid, env.store.Booking(booking.Id).PaymentStatus)
}

func TestProcessRefundInFlight(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	env.gw.createRefundFn = func(in gateway.RefundInput) (*gateway.Refund, error) {
		return &gateway.Refund{Id: "rfnd-async-1", Status: gateway.StatusProcessing}, nil
	}
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 250), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "processing", resp.Status)
	assert.NotEmpty(t, resp.Message)

	stored := env.store.Refund(*resp.RefundId)
	assert.Equal(t, entity.RefundStatusProcessing, stored.Status)
	require.NotNil(t, stored.GatewayRefundId)
	assert.Equal(t, "rfnd-async-1", *stored.GatewayRefundId)

	// Settlement has not been confirmed, so the booking stays paid until
	// the refund webhook arrives.
	assert.Equal(t, entity.BookingPaid, env.store.Booking(booking.Id).PaymentStatus)
	assert.Equal(t, 0, env.publisher.countOf(events.TypeRefundProcessed))
}

func TestProcessRefundCashSettlesImmediately(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodCash)
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 250), uuid.New(), entity.InitiatorStaff)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "manual", resp.RefundType)
	assert.Equal(t, "processed", resp.Status)
	assert.True(t, resp.RequiresManualProcessing)
	assert.NotEmpty(t, resp.Instructions)

	// Funds move outside the system, so the row settles at once without any
	// gateway involvement; a full refund also flips the booking.
	stored := env.store.Refund(*resp.RefundId)
	assert.Equal(t, entity.RefundStatusProcessed, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, 0, env.gw.refundCalls)
	assert.Equal(t, entity.BookingRefunded, env.store.Booking(booking.Id).PaymentStatus)
	assert.Equal(t, 1, env.publisher.countOf(events.TypeRefundProcessed))
}

func TestProcessRefundCashPartialKeepsBookingPaid(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusConfirmed, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodCash)
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 100), uuid.New(), entity.InitiatorStaff)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, entity.RefundStatusProcessed, env.store.Refund(*resp.RefundId).Status)
	assert.Equal(t, entity.BookingPaid, env.store.Booking(booking.Id).PaymentStatus)
}

func TestProcessRefundTransientFailureStaysRetryable(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	env.gw.createRefundFn = func(in gateway.RefundInput) (*gateway.Refund, error) {
		return nil, &gateway.Error{Kind: gateway.KindTransient, Message: "upstream 503"}
	}
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 250), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "failed", resp.Status)
	assert.False(t, resp.RequiresManualProcessing)

	stored := env.store.Refund(*resp.RefundId)
	assert.Equal(t, entity.RefundStatusFailed, stored.Status)
	assert.True(t, stored.Retryable)
	assert.Equal(t, 1, env.publisher.countOf(events.TypeRefundFailed))
}

func TestProcessRefundPermanentRejectionGoesManual(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	env.gw.createRefundFn = func(in gateway.RefundInput) (*gateway.Refund, error) {
		return nil, &gateway.Error{Kind: gateway.KindNotRefundable, Message: "payment not refundable"}
	}
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 250), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.True(t, resp.RequiresManualProcessing)
	assert.NotEmpty(t, resp.Instructions)

	stored := env.store.Refund(*resp.RefundId)
	assert.Equal(t, entity.RefundStatusFailed, stored.Status)
	assert.False(t, stored.Retryable)
}

func TestProcessRefundTimeoutLeavesRowProcessing(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	env.gw.createRefundFn = func(in gateway.RefundInput) (*gateway.Refund, error) {
		return nil, &gateway.Error{Kind: gateway.KindTransient, Message: "request timed out", Unknown: true}
	}
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 250), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	// The gateway may hold the refund; never mark it failed on a timeout.
	assert.True(t, resp.Success)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, entity.RefundStatusProcessing, env.store.Refund(*resp.RefundId).Status)
	assert.Equal(t, 0, env.publisher.countOf(events.TypeRefundFailed))
}

func TestProcessRefundAmountAboveRefundableBalance(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 300), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "exceeds")
	assert.Equal(t, 0, env.gw.refundCalls)
}

func TestProcessRefundCompletedBookingHalfCap(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCompleted, entity.BookingPaid)
	completedAt := time.Now().Add(-24 * time.Hour)
	booking.CompletedAt = &completedAt
	env.store.AddBooking(booking)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	svc := env.refundService()

	// 50% of 250 is 125; asking for more is rejected before any dispatch.
	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 200), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "125.00")

	resp, err = svc.ProcessRefund(context.Background(), refundRequestFor(booking, 125), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

// blindReadFactory hides one refund from every read, modelling the window
// where a concurrent request inserts its row after this request's
// eligibility check. The hidden row still sits in the store, so the insert
// runs into the unique active-refund constraint exactly like two racing
// transactions in postgres.
type blindReadFactory struct {
	inner  unitofwork.RepositoryFactory
	hidden uuid.UUID
}

func (f *blindReadFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &blindReadUow{UnitOfWork: f.inner.NewUnitOfWork(ctx), hidden: f.hidden}
}

type blindReadUow struct {
	unitofwork.UnitOfWork
	hidden uuid.UUID
}

func (u *blindReadUow) RefundRepository() contract.RefundRepository {
	return &blindReadRefundRepo{RefundRepository: u.UnitOfWork.RefundRepository(), hidden: u.hidden}
}

type blindReadRefundRepo struct {
	contract.RefundRepository
	hidden uuid.UUID
}

func (r *blindReadRefundRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundTransaction, error) {
	all, err := r.RefundRepository.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	visible := make([]*entity.RefundTransaction, 0, len(all))
	for _, rf := range all {
		if rf.Id != r.hidden {
			visible = append(visible, rf)
		}
	}
	return visible, nil
}

func TestProcessRefundInsertRaceFallsBackToConstraint(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)

	competing := &entity.RefundTransaction{
		Id:            uuid.New(),
		BookingId:     booking.Id,
		Amount:        100,
		Status:        entity.RefundStatusPending,
		PaymentMethod: entity.PaymentMethodGateway,
	}
	env.store.AddRefund(competing)

	factory := &blindReadFactory{inner: memory.NewFactory(env.store), hidden: competing.Id}
	svc := NewRefundService(factory, env.gw, env.publisher, noopLogger{}, env.cfg, nil)

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 100), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	// Eligibility passed (the read missed the competing row), so the unique
	// index had to reject the insert.
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "already in progress")
	assert.Equal(t, 0, env.gw.refundCalls)
	assert.Equal(t, 0, env.publisher.countOf(events.TypeRefundRequested))

	// The losing request left nothing behind.
	assert.Len(t, env.store.Refunds, 1)
}

func TestProcessRefundDuplicateActiveRefund(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	env.store.AddRefund(&entity.RefundTransaction{
		Id:            uuid.New(),
		BookingId:     booking.Id,
		Amount:        100,
		Status:        entity.RefundStatusPending,
		PaymentMethod: entity.PaymentMethodGateway,
	})
	svc := env.refundService()

	resp, err := svc.ProcessRefund(context.Background(), refundRequestFor(booking, 100), uuid.New(), entity.InitiatorCustomer)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "already in progress")
	assert.Equal(t, 0, env.gw.refundCalls)
}

func TestProcessRefundValidation(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	svc := env.refundService()
	ctx := context.Background()

	_, err := svc.ProcessRefund(ctx, &dto.RefundRequest{
		BookingId: booking.Id, Amount: 0, Reason: "customer-requested",
	}, uuid.New(), entity.InitiatorCustomer)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.ProcessRefund(ctx, &dto.RefundRequest{
		BookingId: booking.Id, Amount: 100, Reason: "changed-my-mind",
	}, uuid.New(), entity.InitiatorCustomer)
	assert.ErrorIs(t, err, ErrInvalidReason)

	_, err = svc.ProcessRefund(ctx, &dto.RefundRequest{
		BookingId: uuid.New(), Amount: 100, Reason: "customer-requested",
	}, uuid.New(), entity.InitiatorCustomer)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCheckEligibility(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusConfirmed, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	svc := env.refundService()

	resp, err := svc.CheckEligibility(context.Background(), booking.Id)
	require.NoError(t, err)

	assert.True(t, resp.Eligible)
	assert.Equal(t, 100, resp.RefundablePercent)
	assert.Equal(t, 250.0, resp.MaxRefundable)
}

func TestCheckEligibilitySubtractsProcessedRefunds(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusConfirmed, entity.BookingPartiallyPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)
	now := time.Now()
	env.store.AddRefund(&entity.RefundTransaction{
		Id:          uuid.New(),
		BookingId:   booking.Id,
		Amount:      100,
		Status:      entity.RefundStatusProcessed,
		ProcessedAt: &now,
	})
	svc := env.refundService()

	resp, err := svc.CheckEligibility(context.Background(), booking.Id)
	require.NoError(t, err)

	assert.True(t, resp.Eligible)
	assert.Equal(t, 150.0, resp.MaxRefundable)
}

func TestDenyRefund(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	refund := &entity.RefundTransaction{
		Id:            uuid.New(),
		BookingId:     booking.Id,
		Amount:        250,
		Status:        entity.RefundStatusPending,
		PaymentMethod: entity.PaymentMethodCash,
	}
	env.store.AddRefund(refund)
	svc := env.refundService()

	require.NoError(t, svc.DenyRefund(context.Background(), refund.Id, "duplicate request"))

	stored := env.store.Refund(refund.Id)
	assert.Equal(t, entity.RefundStatusCancelled, stored.Status)
	assert.Contains(t, stored.Notes, "denied: duplicate request")
	assert.Equal(t, 1, env.publisher.countOf(events.TypeRefundDenied))
}

func TestDenyRefundOnlyPending(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	refund := &entity.RefundTransaction{
		Id:        uuid.New(),
		BookingId: booking.Id,
		Amount:    250,
		Status:    entity.RefundStatusProcessing,
	}
	env.store.AddRefund(refund)
	svc := env.refundService()

	assert.ErrorIs(t, svc.DenyRefund(context.Background(), refund.Id, ""), ErrInvalidTransition)
	assert.ErrorIs(t, svc.DenyRefund(context.Background(), uuid.New(), ""), ErrRefundNotFound)
}

func TestCompleteRefundConfirmedOutOfBand(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	env.seedSettledPayment(booking.Id, 250, entity.PaymentMethodGateway)

	// A gateway refund stuck in processing that a human verified settled on
	// the gateway dashboard.
	refund := &entity.RefundTransaction{
		Id:            uuid.New(),
		BookingId:     booking.Id,
		Amount:        250,
		Status:        entity.RefundStatusProcessing,
		PaymentMethod: entity.PaymentMethodGateway,
		Provider:      entity.ProviderGateway,
	}
	env.store.AddRefund(refund)
	svc := env.refundService()

	require.NoError(t, svc.CompleteRefund(context.Background(), refund.Id))

	stored := env.store.Refund(refund.Id)
	assert.Equal(t, entity.RefundStatusProcessed, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, entity.BookingRefunded, env.store.Booking(booking.Id).PaymentStatus)
	assert.Equal(t, 1, env.publisher.countOf(events.TypeRefundProcessed))
}

func TestCompleteRefundRejectsTerminalRows(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)
	refund := &entity.RefundTransaction{
		Id:        uuid.New(),
		BookingId: booking.Id,
		Amount:    250,
		Status:    entity.RefundStatusCancelled,
	}
	env.store.AddRefund(refund)
	svc := env.refundService()

	assert.ErrorIs(t, svc.CompleteRefund(context.Background(), refund.Id), ErrInvalidTransition)
}

func TestListRefunds(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusCancelled, entity.BookingPaid)

	old := &entity.RefundTransaction{
		Id:        uuid.New(),
		BookingId: booking.Id,
		Amount:    50,
		Status:    entity.RefundStatusProcessed,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	recent := &entity.RefundTransaction{
		Id:        uuid.New(),
		BookingId: booking.Id,
		Amount:    75,
		Status:    entity.RefundStatusFailed,
		Retryable: true,
		CreatedAt: time.Now().Add(-1 * time.Hour),
	}
	env.store.AddRefund(old)
	env.store.AddRefund(recent)
	svc := env.refundService()

	items, err := svc.ListRefunds(context.Background(), "", 20, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Newest first, with the booking context joined in.
	assert.Equal(t, recent.Id, items[0].Id)
	assert.Equal(t, "Dana Whitfield", items[0].CustomerName)
	assert.Equal(t, booking.ServiceName, items[0].ServiceName)

	failed, err := svc.ListRefunds(context.Background(), "failed", 20, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, recent.Id, failed[0].Id)
}
