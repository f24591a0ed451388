package unitofwork

import (
	"context"

	"pet-aftercare-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	BookingRepository() contract.BookingRepository
	PaymentRepository() contract.PaymentRepository
	RefundRepository() contract.RefundRepository
	GatewayEventRepository() contract.GatewayEventRepository
}
