package implementation

import (
	"context"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/model"
	"pet-aftercare-be/internal/repository/contract"
	"pet-aftercare-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type refundRepositoryImpl struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) contract.RefundRepository {
	return &refundRepositoryImpl{db: db}
}

func (r *refundRepositoryImpl) Create(ctx context.Context, refund *entity.RefundTransaction) error {
	mr := &model.RefundTransaction{
		Id:              refund.Id,
		BookingId:       refund.BookingId,
		Amount:          refund.Amount,
		Currency:        refund.Currency,
		Reason:          string(refund.Reason),
		Status:          string(refund.Status),
		PaymentMethod:   string(refund.PaymentMethod),
		Provider:        string(refund.Provider),
		GatewayRefundId: refund.GatewayRefundId,
		Notes:           refund.Notes,
		FailureReason:   refund.FailureReason,
		Retryable:       refund.Retryable,
		RetryCount:      refund.RetryCount,
		InitiatedBy:     refund.InitiatedBy,
		InitiatedByType: string(refund.InitiatedByType),
		ProcessedAt:     refund.ProcessedAt,
	}
	return r.db.WithContext(ctx).Create(mr).Error
}

func (r *refundRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RefundTransaction, error) {
	var mr model.RefundTransaction
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&mr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return r.mapToEntity(&mr), nil
}

func (r *refundRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundTransaction, error) {
	var mrs []*model.RefundTransaction
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&mrs).Error; err != nil {
		return nil, err
	}

	var refunds []*entity.RefundTransaction
	for _, mr := range mrs {
		refunds = append(refunds, r.mapToEntity(mr))
	}
	return refunds, nil
}

// FindAllWithBooking returns refunds with the booking relation preloaded
// for the staff dashboard list.
func (r *refundRepositoryImpl) FindAllWithBooking(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundTransaction, error) {
	var mrs []*model.RefundTransaction
	query := r.db.WithContext(ctx).Preload("Booking")

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&mrs).Error; err != nil {
		return nil, err
	}

	var refunds []*entity.RefundTransaction
	for _, mr := range mrs {
		refund := r.mapToEntity(mr)
		if mr.Booking.Id != uuid.Nil {
			booking := mapBookingToEntity(&mr.Booking)
			refund.Booking = booking
		}
		refunds = append(refunds, refund)
	}
	return refunds, nil
}

func (r *refundRepositoryImpl) Update(ctx context.Context, refund *entity.RefundTransaction) error {
	return r.db.WithContext(ctx).Model(&model.RefundTransaction{}).
		Where("id = ?", refund.Id).
		Updates(map[string]interface{}{
			"status":            string(refund.Status),
			"gateway_refund_id": refund.GatewayRefundId,
			"notes":             refund.Notes,
			"failure_reason":    refund.FailureReason,
			"retryable":         refund.Retryable,
			"retry_count":       refund.RetryCount,
			"processed_at":      refund.ProcessedAt,
		}).Error
}

func (r *refundRepositoryImpl) ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.RefundTransaction{}).
		Where("id = ? AND status = ? AND retryable = ?", id, "failed", true).
		Update("status", "processing")
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *refundRepositoryImpl) mapToEntity(mr *model.RefundTransaction) *entity.RefundTransaction {
	return &entity.RefundTransaction{
		Id:              mr.Id,
		BookingId:       mr.BookingId,
		Amount:          mr.Amount,
		Currency:        mr.Currency,
		Reason:          entity.RefundReason(mr.Reason),
		Status:          entity.RefundStatus(mr.Status),
		PaymentMethod:   entity.PaymentMethod(mr.PaymentMethod),
		Provider:        entity.PaymentProvider(mr.Provider),
		GatewayRefundId: mr.GatewayRefundId,
		Notes:           mr.Notes,
		FailureReason:   mr.FailureReason,
		Retryable:       mr.Retryable,
		RetryCount:      mr.RetryCount,
		InitiatedBy:     mr.InitiatedBy,
		InitiatedByType: entity.InitiatorType(mr.InitiatedByType),
		ProcessedAt:     mr.ProcessedAt,
		CreatedAt:       mr.CreatedAt,
		UpdatedAt:       mr.UpdatedAt,
	}
}
