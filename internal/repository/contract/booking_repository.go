package contract

import (
	"context"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/repository/specification"
)

type BookingRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Booking, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Booking, error)
	Create(ctx context.Context, booking *entity.Booking) error
	// UpdatePaymentStatus writes only the payment_status column; every other
	// booking attribute belongs to the booking subsystem.
	UpdatePaymentStatus(ctx context.Context, booking *entity.Booking) error
}
