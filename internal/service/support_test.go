package service

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"pet-aftercare-be/internal/config"
	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/repository/memory"
	"pet-aftercare-be/pkg/gateway"

	"github.com/google/uuid"
)

const testServerKey = "SB-Mid-server-test-key"

// --- Fakes ---

type fakeGateway struct {
	createSourceFn   func(in gateway.CreateSourceInput) (*gateway.Source, error)
	retrieveSourceFn func(orderId string) (*gateway.Source, error)
	createRefundFn   func(in gateway.RefundInput) (*gateway.Refund, error)

	refundCalls int
}

func (f *fakeGateway) CreateSource(ctx context.Context, in gateway.CreateSourceInput) (*gateway.Source, error) {
	if f.createSourceFn != nil {
		return f.createSourceFn(in)
	}
	return &gateway.Source{
		Id:          "src-" + in.OrderId,
		CheckoutUrl: "https://checkout.example.com/" + in.OrderId,
		Status:      gateway.StatusPending,
	}, nil
}

func (f *fakeGateway) CreatePaymentIntent(ctx context.Context, in gateway.CreateIntentInput) (*gateway.Intent, error) {
	return nil, &gateway.Error{Kind: gateway.KindInvalidRequest, Message: "not wired in this test"}
}

func (f *fakeGateway) RetrieveSource(ctx context.Context, orderId string) (*gateway.Source, error) {
	if f.retrieveSourceFn != nil {
		return f.retrieveSourceFn(orderId)
	}
	return &gateway.Source{Id: "src-" + orderId, Status: gateway.StatusPending}, nil
}

func (f *fakeGateway) RetrievePaymentIntent(ctx context.Context, orderId string) (*gateway.Intent, error) {
	return nil, &gateway.Error{Kind: gateway.KindInvalidRequest, Message: "not wired in this test"}
}

func (f *fakeGateway) CreateRefund(ctx context.Context, in gateway.RefundInput) (*gateway.Refund, error) {
	f.refundCalls++
	if f.createRefundFn != nil {
		return f.createRefundFn(in)
	}
	return &gateway.Refund{Id: "rfnd-" + in.RefundKey, Status: gateway.StatusSucceeded}, nil
}

type publishedEvent struct {
	Type string
	Data map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) countOf(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

// --- Environment ---

type testEnv struct {
	store     *memory.Store
	gw        *fakeGateway
	publisher *recordingPublisher
	cfg       *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		store:     memory.NewStore(),
		gw:        &fakeGateway{},
		publisher: &recordingPublisher{},
		cfg: &config.Config{
			App: config.AppConfig{ClientURL: "http://localhost:5173"},
			Gateway: config.GatewayConfig{
				ServerKey:      testServerKey,
				TimeoutSeconds: 30,
			},
			Refund: config.RefundConfig{
				MaxRetries:           3,
				CompletedWindowHours: 168,
			},
		},
	}
}

func (e *testEnv) paymentService() IPaymentService {
	return NewPaymentService(memory.NewFactory(e.store), e.gw, e.publisher, noopLogger{}, e.cfg)
}

func (e *testEnv) refundService() IRefundService {
	return NewRefundService(memory.NewFactory(e.store), e.gw, e.publisher, noopLogger{}, e.cfg, nil)
}

func (e *testEnv) retryService() IRefundRetryService {
	return NewRefundRetryService(memory.NewFactory(e.store), e.gw, e.publisher, noopLogger{}, e.cfg)
}

// --- Fixtures ---

func (e *testEnv) seedBooking(status entity.BookingStatus, payStatus entity.BookingPaymentStatus) *entity.Booking {
	b := &entity.Booking{
		Id:            uuid.New(),
		CustomerId:    uuid.New(),
		ProviderId:    uuid.New(),
		CustomerName:  "Dana Whitfield",
		CustomerEmail: "dana@example.com",
		ServiceName:   "Private cremation - large companion",
		Amount:        250,
		Currency:      "usd",
		Status:        status,
		PaymentStatus: payStatus,
		ScheduledAt:   time.Now().Add(48 * time.Hour),
		CreatedAt:     time.Now(),
	}
	e.store.AddBooking(b)
	return b
}

func (e *testEnv) seedSettledPayment(bookingId uuid.UUID, amount float64, method entity.PaymentMethod) *entity.PaymentTransaction {
	provider := entity.ProviderGateway
	if method == entity.PaymentMethodCash {
		provider = entity.ProviderManual
	}
	providerTxId := "mid-" + uuid.NewString()[:8]
	tx := &entity.PaymentTransaction{
		Id:                    uuid.New(),
		BookingId:             bookingId,
		Amount:                amount,
		Currency:              "usd",
		PaymentMethod:         method,
		Status:                entity.PaymentTxSucceeded,
		Provider:              provider,
		ProviderTransactionId: &providerTxId,
		CreatedAt:             time.Now(),
	}
	e.store.AddPayment(tx)
	return tx
}

func (e *testEnv) seedPendingGatewayPayment(bookingId uuid.UUID, amount float64) *entity.PaymentTransaction {
	sourceId := "src-" + uuid.NewString()[:8]
	tx := &entity.PaymentTransaction{
		Id:              uuid.New(),
		BookingId:       bookingId,
		Amount:          amount,
		Currency:        "usd",
		PaymentMethod:   entity.PaymentMethodGateway,
		Status:          entity.PaymentTxPending,
		Provider:        entity.ProviderGateway,
		GatewaySourceId: &sourceId,
		CreatedAt:       time.Now(),
	}
	e.store.AddPayment(tx)
	return tx
}

func (e *testEnv) seedFailedRefund(bookingId uuid.UUID, amount float64, retryable bool) *entity.RefundTransaction {
	reason := "gateway is temporarily unavailable"
	r := &entity.RefundTransaction{
		Id:            uuid.New(),
		BookingId:     bookingId,
		Amount:        amount,
		Currency:      "usd",
		Reason:        entity.RefundReasonCustomerRequested,
		Status:        entity.RefundStatusFailed,
		PaymentMethod: entity.PaymentMethodGateway,
		Provider:      entity.ProviderGateway,
		FailureReason: &reason,
		Retryable:     retryable,
		CreatedAt:     time.Now(),
	}
	e.store.AddRefund(r)
	return r
}

// signedWebhook builds a notification body carrying a valid signature for
// testServerKey.
func signedWebhook(t *testing.T, orderId, transactionStatus, transactionId string) []byte {
	t.Helper()
	statusCode := "200"
	grossAmount := "250.00"
	sig := fmt.Sprintf("%x", sha512.Sum512([]byte(orderId+statusCode+grossAmount+testServerKey)))

	body, err := json.Marshal(map[string]string{
		"order_id":           orderId,
		"transaction_id":     transactionId,
		"transaction_status": transactionStatus,
		"payment_type":       "qris",
		"status_code":        statusCode,
		"gross_amount":       grossAmount,
		"signature_key":      sig,
	})
	if err != nil {
		t.Fatalf("failed to build webhook body: %v", err)
	}
	return body
}
