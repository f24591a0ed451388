package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IQueuePublisher pushes work onto the in-process queue. The retry
// coordinator is triggered through it so webhook handling and scheduled
// ticks share one entry point.
type IQueuePublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

type queuePublisher struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewQueuePublisher(pubSub *gochannel.GoChannel, topicName string) IQueuePublisher {
	return &queuePublisher{
		pubSub:    pubSub,
		topicName: topicName,
	}
}

func (p *queuePublisher) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topicName, msg)
}
