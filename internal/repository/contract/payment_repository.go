package contract

import (
	"context"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *entity.PaymentTransaction) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PaymentTransaction, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PaymentTransaction, error)
	// FindLatestByBooking returns the most recent attempt, or nil.
	FindLatestByBooking(ctx context.Context, bookingId uuid.UUID) (*entity.PaymentTransaction, error)
	Update(ctx context.Context, tx *entity.PaymentTransaction) error
	// UpdateStatusIf performs a compare-and-set on the status column and
	// reports whether the row actually transitioned. Reconciliation relies
	// on this to fire side effects exactly once.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to entity.PaymentTxStatus, providerTxId *string) (bool, error)
}
