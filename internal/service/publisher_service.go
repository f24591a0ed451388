package service

import (
	"context"
	"time"

	"pet-aftercare-be/internal/pkg/logger"
	"pet-aftercare-be/pkg/events"
	"pet-aftercare-be/pkg/nats"
)

// IPublisherService fans domain events out to the NATS bus. Delivery is
// best effort from the orchestrators' point of view: a bus outage must
// never fail a payment or refund, so Publish has no error return and
// problems are only logged.
type IPublisherService interface {
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

type publisherService struct {
	pub *nats.Publisher
	log logger.ILogger
}

func NewPublisherService(pub *nats.Publisher, log logger.ILogger) IPublisherService {
	return &publisherService{pub: pub, log: log}
}

func (s *publisherService) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.pub == nil {
		return
	}

	event := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}

	if err := s.pub.Publish(ctx, event); err != nil {
		s.log.Error("publisher", "Failed to publish event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}
