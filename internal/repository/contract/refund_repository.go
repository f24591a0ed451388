package contract

import (
	"context"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/repository/specification"

	"github.com/google/uuid"
)

type RefundRepository interface {
	Create(ctx context.Context, refund *entity.RefundTransaction) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RefundTransaction, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundTransaction, error)
	FindAllWithBooking(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundTransaction, error)
	Update(ctx context.Context, refund *entity.RefundTransaction) error
	// ClaimForRetry transitions failed -> processing only if the row is still
	// failed and retryable, so concurrent coordinator runs cannot both
	// dispatch the same refund.
	ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error)
}
