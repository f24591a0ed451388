package gateway

import "context"

// Client is the contract the payment engine depends on. It is deliberately
// vendor-shaped but vendor-agnostic: the orchestrators only ever see these
// types, never the Midtrans SDK.
type Client interface {
	// CreateSource opens a hosted checkout and returns the redirect URL the
	// customer completes payment on.
	CreateSource(ctx context.Context, in CreateSourceInput) (*Source, error)

	// CreatePaymentIntent charges directly through an e-wallet without a
	// hosted page.
	CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*Intent, error)

	// RetrieveSource fetches the gateway's current view of a checkout payment.
	RetrieveSource(ctx context.Context, orderId string) (*Source, error)

	// RetrievePaymentIntent fetches the gateway's current view of a direct charge.
	RetrievePaymentIntent(ctx context.Context, orderId string) (*Intent, error)

	// CreateRefund asks the gateway to return funds for a settled payment.
	// Failures carry a typed *Error so callers can distinguish transient
	// problems (retry later) from permanent rejections (manual processing).
	CreateRefund(ctx context.Context, in RefundInput) (*Refund, error)
}

type CreateSourceInput struct {
	OrderId       string
	Amount        float64
	Currency      string
	CustomerName  string
	CustomerEmail string
	Description   string
	RedirectUrl   string
}

type CreateIntentInput struct {
	OrderId  string
	Amount   float64
	Currency string
}

type RefundInput struct {
	// PaymentId is the gateway identifier of the original charge. A refund
	// cannot be dispatched without it.
	PaymentId string
	RefundKey string
	Amount    float64
	Reason    string
}

type Source struct {
	Id          string
	CheckoutUrl string
	Status      Status
}

type Intent struct {
	Id     string
	Status Status
}

type Refund struct {
	Id     string
	Status Status
}
