package contract

import (
	"context"

	"pet-aftercare-be/internal/entity"
)

type GatewayEventRepository interface {
	Create(ctx context.Context, event *entity.GatewayEvent) error
}
