package implementation

import (
	"context"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/model"
	"pet-aftercare-be/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type gatewayEventRepositoryImpl struct {
	db *gorm.DB
}

func NewGatewayEventRepository(db *gorm.DB) contract.GatewayEventRepository {
	return &gatewayEventRepositoryImpl{db: db}
}

func (r *gatewayEventRepositoryImpl) Create(ctx context.Context, event *entity.GatewayEvent) error {
	me := &model.GatewayEvent{
		Id:        event.Id,
		OrderId:   event.OrderId,
		EventType: event.EventType,
		Payload:   datatypes.JSON(event.Payload),
	}
	return r.db.WithContext(ctx).Create(me).Error
}
