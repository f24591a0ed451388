package implementation

import (
	"context"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/model"
	"pet-aftercare-be/internal/repository/contract"
	"pet-aftercare-be/internal/repository/specification"

	"gorm.io/gorm"
)

type bookingRepositoryImpl struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) contract.BookingRepository {
	return &bookingRepositoryImpl{db: db}
}

func (r *bookingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Booking, error) {
	var mb model.Booking
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&mb).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return r.mapToEntity(&mb), nil
}

func (r *bookingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Booking, error) {
	var mbs []*model.Booking
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&mbs).Error; err != nil {
		return nil, err
	}

	var bookings []*entity.Booking
	for _, mb := range mbs {
		bookings = append(bookings, r.mapToEntity(mb))
	}
	return bookings, nil
}

func (r *bookingRepositoryImpl) Create(ctx context.Context, booking *entity.Booking) error {
	mb := &model.Booking{
		Id:            booking.Id,
		CustomerId:    booking.CustomerId,
		ProviderId:    booking.ProviderId,
		CustomerName:  booking.CustomerName,
		CustomerEmail: booking.CustomerEmail,
		ServiceName:   booking.ServiceName,
		Amount:        booking.Amount,
		Currency:      booking.Currency,
		Status:        string(booking.Status),
		PaymentStatus: string(booking.PaymentStatus),
		ScheduledAt:   booking.ScheduledAt,
		CompletedAt:   booking.CompletedAt,
	}
	return r.db.WithContext(ctx).Create(mb).Error
}

func (r *bookingRepositoryImpl) UpdatePaymentStatus(ctx context.Context, booking *entity.Booking) error {
	return r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", booking.Id).
		Update("payment_status", string(booking.PaymentStatus)).Error
}

func (r *bookingRepositoryImpl) mapToEntity(mb *model.Booking) *entity.Booking {
	return mapBookingToEntity(mb)
}

// mapBookingToEntity is shared with the refund repository, which preloads
// the booking relation for the staff list.
func mapBookingToEntity(mb *model.Booking) *entity.Booking {
	return &entity.Booking{
		Id:            mb.Id,
		CustomerId:    mb.CustomerId,
		ProviderId:    mb.ProviderId,
		CustomerName:  mb.CustomerName,
		CustomerEmail: mb.CustomerEmail,
		ServiceName:   mb.ServiceName,
		Amount:        mb.Amount,
		Currency:      mb.Currency,
		Status:        entity.BookingStatus(mb.Status),
		PaymentStatus: entity.BookingPaymentStatus(mb.PaymentStatus),
		ScheduledAt:   mb.ScheduledAt,
		CompletedAt:   mb.CompletedAt,
		CreatedAt:     mb.CreatedAt,
		UpdatedAt:     mb.UpdatedAt,
	}
}
