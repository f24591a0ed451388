package memory

import (
	"context"

	"pet-aftercare-be/internal/repository/contract"
	"pet-aftercare-be/internal/repository/unitofwork"
)

// Factory satisfies unitofwork.RepositoryFactory over the in-memory store.
// Transactions are no-ops: writes apply immediately, which is good enough
// for exercising service flows.
type Factory struct {
	store *Store
}

func NewFactory(store *Store) *Factory {
	return &Factory{store: store}
}

func (f *Factory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: f.store}
}

type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) BookingRepository() contract.BookingRepository {
	return NewBookingRepository(u.store)
}

func (u *unitOfWork) PaymentRepository() contract.PaymentRepository {
	return NewPaymentRepository(u.store)
}

func (u *unitOfWork) RefundRepository() contract.RefundRepository {
	return NewRefundRepository(u.store)
}

func (u *unitOfWork) GatewayEventRepository() contract.GatewayEventRepository {
	return NewGatewayEventRepository(u.store)
}
