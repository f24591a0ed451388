package bootstrap

import (
	"context"
	"log"

	"pet-aftercare-be/internal/config"
	"pet-aftercare-be/internal/controller"
	"pet-aftercare-be/internal/handler"
	"pet-aftercare-be/internal/pkg/logger"
	"pet-aftercare-be/internal/pkg/mailer"
	"pet-aftercare-be/internal/repository/unitofwork"
	"pet-aftercare-be/internal/service"
	"pet-aftercare-be/internal/websocket"
	"pet-aftercare-be/pkg/gateway"

	pktNats "pet-aftercare-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const retryRunTopic = "refund-retry-run"

type Container struct {
	// Controllers
	PaymentController controller.IPaymentController
	RefundController  controller.IRefundController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService
	QueuePublisher  service.IQueuePublisher
	RetryService    service.IRefundRetryService

	// WebSockets & notification
	FeedHandler  *handler.FeedHandler
	WebSocketHub *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Payment gateway
	gatewayClient := gateway.NewMidtransClient(
		cfg.Gateway.ServerKey,
		cfg.Gateway.IsProduction,
		cfg.Gateway.TimeoutSeconds,
	)

	// WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/feed.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Services
	eventPublisher := service.NewPublisherService(natsPub, sysLogger)
	queuePublisher := service.NewQueuePublisher(pubSub, retryRunTopic)

	paymentService := service.NewPaymentService(uowFactory, gatewayClient, eventPublisher, sysLogger, cfg)
	refundService := service.NewRefundService(uowFactory, gatewayClient, eventPublisher, sysLogger, cfg, rdb)
	retryService := service.NewRefundRetryService(uowFactory, gatewayClient, eventPublisher, sysLogger, cfg)
	consumerService := service.NewConsumerService(pubSub, retryRunTopic, retryService, sysLogger)

	// Notification worker
	notifService := service.NewNotificationService(natsSub, emailService, wsHub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}

	feedHandler := handler.NewFeedHandler(wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		PaymentController: controller.NewPaymentController(paymentService),
		RefundController:  controller.NewRefundController(refundService, queuePublisher),

		ConsumerService: consumerService,
		QueuePublisher:  queuePublisher,
		RetryService:    retryService,

		FeedHandler:  feedHandler,
		WebSocketHub: wsHub,

		Logger: sysLogger,
	}
}
