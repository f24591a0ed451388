package service

import (
	"context"
	"encoding/json"

	"pet-aftercare-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// RetryRunMessage is the queue payload asking for a retry sweep. Trigger
// records what requested the run, for the logs only.
type RetryRunMessage struct {
	Trigger string `json:"trigger"`
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	retryService IRefundRetryService
	log          logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	retryService IRefundRetryService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:       pubSub,
		topicName:    topicName,
		retryService: retryService,
		log:          log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload RetryRunMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("refund_retry", "Failed to unmarshal retry trigger", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed triggers are dropped, not retried
		return
	}

	result, err := cs.retryService.RetryFailedRefunds(ctx)
	if err != nil {
		cs.log.Error("refund_retry", "Retry run failed", map[string]interface{}{
			"trigger": payload.Trigger,
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}

	cs.log.Info("refund_retry", "Retry run triggered", map[string]interface{}{
		"trigger":      payload.Trigger,
		"attempted":    result.Attempted,
		"succeeded":    result.Succeeded,
		"still_failed": result.StillFailed,
	})
	msg.Ack()
}
