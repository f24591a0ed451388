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

type paymentRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) contract.PaymentRepository {
	return &paymentRepositoryImpl{db: db}
}

func (r *paymentRepositoryImpl) Create(ctx context.Context, tx *entity.PaymentTransaction) error {
	mt := &model.PaymentTransaction{
		Id:                    tx.Id,
		BookingId:             tx.BookingId,
		Amount:                tx.Amount,
		Currency:              tx.Currency,
		PaymentMethod:         string(tx.PaymentMethod),
		Status:                string(tx.Status),
		Provider:              string(tx.Provider),
		GatewaySourceId:       tx.GatewaySourceId,
		GatewayIntentId:       tx.GatewayIntentId,
		ProviderTransactionId: tx.ProviderTransactionId,
		CheckoutUrl:           tx.CheckoutUrl,
		FailureReason:         tx.FailureReason,
	}
	return r.db.WithContext(ctx).Create(mt).Error
}

func (r *paymentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PaymentTransaction, error) {
	var mt model.PaymentTransaction
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&mt).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return r.mapToEntity(&mt), nil
}

func (r *paymentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PaymentTransaction, error) {
	var mts []*model.PaymentTransaction
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&mts).Error; err != nil {
		return nil, err
	}

	var txs []*entity.PaymentTransaction
	for _, mt := range mts {
		txs = append(txs, r.mapToEntity(mt))
	}
	return txs, nil
}

func (r *paymentRepositoryImpl) FindLatestByBooking(ctx context.Context, bookingId uuid.UUID) (*entity.PaymentTransaction, error) {
	return r.FindOne(ctx,
		specification.ByBooking{BookingID: bookingId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}

func (r *paymentRepositoryImpl) Update(ctx context.Context, tx *entity.PaymentTransaction) error {
	return r.db.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("id = ?", tx.Id).
		Updates(map[string]interface{}{
			"status":                  string(tx.Status),
			"gateway_source_id":       tx.GatewaySourceId,
			"gateway_intent_id":       tx.GatewayIntentId,
			"provider_transaction_id": tx.ProviderTransactionId,
			"checkout_url":            tx.CheckoutUrl,
			"failure_reason":          tx.FailureReason,
		}).Error
}

func (r *paymentRepositoryImpl) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to entity.PaymentTxStatus, providerTxId *string) (bool, error) {
	updates := map[string]interface{}{"status": string(to)}
	if providerTxId != nil {
		updates["provider_transaction_id"] = providerTxId
	}

	res := r.db.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *paymentRepositoryImpl) mapToEntity(mt *model.PaymentTransaction) *entity.PaymentTransaction {
	return &entity.PaymentTransaction{
		Id:                    mt.Id,
		BookingId:             mt.BookingId,
		Amount:                mt.Amount,
		Currency:              mt.Currency,
		PaymentMethod:         entity.PaymentMethod(mt.PaymentMethod),
		Status:                entity.PaymentTxStatus(mt.Status),
		Provider:              entity.PaymentProvider(mt.Provider),
		GatewaySourceId:       mt.GatewaySourceId,
		GatewayIntentId:       mt.GatewayIntentId,
		ProviderTransactionId: mt.ProviderTransactionId,
		CheckoutUrl:           mt.CheckoutUrl,
		FailureReason:         mt.FailureReason,
		CreatedAt:             mt.CreatedAt,
		UpdatedAt:             mt.UpdatedAt,
	}
}
