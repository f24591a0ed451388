package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pet-aftercare-be/internal/dto"
	"pet-aftercare-be/internal/pkg/logger"
	"pet-aftercare-be/internal/pkg/mailer"
	"pet-aftercare-be/pkg/events"
	pktNats "pet-aftercare-be/pkg/nats"
)

// FeedDelivery pushes real-time updates to the staff dashboard.
// Implemented by the WebSocket hub.
type FeedDelivery interface {
	Broadcast(item dto.FeedItem)
}

// NotificationService turns bus events into customer emails and staff feed
// updates. It never writes to the payment ledgers; a crashed notification
// must not affect money movement.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	mailer     mailer.IEmailService
	delivery   FeedDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, m mailer.IEmailService, delivery FeedDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		mailer:     m,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus with a durable consumer.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "payment-notif-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("notification", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("notification", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	// The NATS subject includes the "events." prefix.
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	s.logger.Info("notification", "Processing event", map[string]interface{}{"type": typeCode})

	if s.delivery != nil {
		s.delivery.Broadcast(dto.FeedItem{
			Type:       typeCode,
			Message:    feedMessage(typeCode, payload),
			Data:       payload,
			OccurredAt: time.Now(),
		})
	}

	s.sendEmail(typeCode, payload)
	return nil
}

// sendEmail is best effort: email provider failures are logged, never
// retried through the bus, so a flaky SMTP server cannot build an
// unbounded redelivery loop.
func (s *NotificationService) sendEmail(typeCode string, payload map[string]interface{}) {
	if s.mailer == nil {
		return
	}

	email, _ := payload["customer_email"].(string)
	if email == "" {
		return
	}

	service, _ := payload["service_name"].(string)
	if service == "" {
		service = "your booking"
	}
	amount, _ := payload["amount"].(float64)
	currency, _ := payload["currency"].(string)
	if currency == "" {
		currency = "IDR"
	}

	var err error
	switch typeCode {
	case events.TypePaymentSucceeded:
		err = s.mailer.SendPaymentReceipt(email, service, amount, currency)
	case events.TypePaymentFailed:
		reason, _ := payload["reason"].(string)
		err = s.mailer.SendPaymentFailed(email, service, reason)
	case events.TypeRefundProcessed:
		err = s.mailer.SendRefundOutcome(email, service, amount, currency, true)
	case events.TypeRefundFailed:
		err = s.mailer.SendRefundOutcome(email, service, amount, currency, false)
	default:
		return
	}

	if err != nil {
		s.logger.Error("notification", "Failed to send email", map[string]interface{}{
			"type":  typeCode,
			"error": err.Error(),
		})
	}
}

func feedMessage(typeCode string, payload map[string]interface{}) string {
	bookingId, _ := payload["booking_id"].(string)
	amount, _ := payload["amount"].(float64)

	switch typeCode {
	case events.TypePaymentCreated:
		return fmt.Sprintf("Payment started for booking %s (%.2f)", bookingId, amount)
	case events.TypePaymentSucceeded:
		return fmt.Sprintf("Payment settled for booking %s (%.2f)", bookingId, amount)
	case events.TypePaymentFailed:
		return fmt.Sprintf("Payment failed for booking %s", bookingId)
	case events.TypeRefundRequested:
		return fmt.Sprintf("Refund requested for booking %s (%.2f)", bookingId, amount)
	case events.TypeRefundProcessed:
		return fmt.Sprintf("Refund processed for booking %s (%.2f)", bookingId, amount)
	case events.TypeRefundFailed:
		return fmt.Sprintf("Refund failed for booking %s, may need manual processing", bookingId)
	case events.TypeRefundDenied:
		return fmt.Sprintf("Refund denied for booking %s", bookingId)
	default:
		return typeCode
	}
}
