package gateway

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// midtransClient implements Client on top of the Midtrans Snap (hosted
// checkout) and CoreAPI (status, direct charge, refund) products.
type midtransClient struct {
	snap    snap.Client
	core    coreapi.Client
	timeout time.Duration
}

// NewMidtransClient builds the gateway adapter. timeoutSeconds bounds every
// outbound call; a timed-out call reports a transient error with an unknown
// gateway-side outcome.
func NewMidtransClient(serverKey string, isProduction bool, timeoutSeconds int) Client {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}

	c := &midtransClient{timeout: time.Duration(timeoutSeconds) * time.Second}
	c.snap.New(serverKey, env)
	c.core.New(serverKey, env)
	return c
}

// call runs fn under the configured deadline. The SDK has no context
// support, so the deadline is enforced by abandoning the in-flight call;
// the result is then unknown, not failed.
func (c *midtransClient) call(ctx context.Context, fn func() *Error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan *Error, 1)
	go func() { done <- fn() }()

	select {
	case gerr := <-done:
		if gerr != nil {
			return gerr
		}
		return nil
	case <-ctx.Done():
		return &Error{Kind: KindTransient, Message: "gateway call timed out", Unknown: true}
	}
}

func grossAmount(amount float64) int64 {
	return int64(math.Round(amount))
}

func (c *midtransClient) CreateSource(ctx context.Context, in CreateSourceInput) (*Source, error) {
	var out *Source

	err := c.call(ctx, func() *Error {
		req := &snap.Request{
			TransactionDetails: midtrans.TransactionDetails{
				OrderID:  in.OrderId,
				GrossAmt: grossAmount(in.Amount),
			},
			CustomerDetail: &midtrans.CustomerDetails{
				FName: in.CustomerName,
				Email: in.CustomerEmail,
			},
			Items: &[]midtrans.ItemDetails{
				{
					ID:    in.OrderId,
					Price: grossAmount(in.Amount),
					Qty:   1,
					Name:  in.Description,
				},
			},
			Callbacks:       &snap.Callbacks{Finish: in.RedirectUrl},
			EnabledPayments: snap.AllSnapPaymentType,
		}

		resp, merr := c.snap.CreateTransaction(req)
		if merr != nil {
			return classify(merr)
		}
		out = &Source{
			Id:          in.OrderId,
			CheckoutUrl: resp.RedirectURL,
			Status:      StatusPending,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *midtransClient) CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	var out *Intent

	err := c.call(ctx, func() *Error {
		req := &coreapi.ChargeReq{
			PaymentType: coreapi.PaymentTypeGopay,
			TransactionDetails: midtrans.TransactionDetails{
				OrderID:  in.OrderId,
				GrossAmt: grossAmount(in.Amount),
			},
		}

		resp, merr := c.core.ChargeTransaction(req)
		if merr != nil {
			return classify(merr)
		}
		out = &Intent{
			Id:     resp.TransactionID,
			Status: MapStatus(resp.TransactionStatus),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *midtransClient) RetrieveSource(ctx context.Context, orderId string) (*Source, error) {
	var out *Source

	err := c.call(ctx, func() *Error {
		resp, merr := c.core.CheckTransaction(orderId)
		if merr != nil {
			return classify(merr)
		}
		out = &Source{
			Id:     resp.TransactionID,
			Status: MapStatus(resp.TransactionStatus),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *midtransClient) RetrievePaymentIntent(ctx context.Context, orderId string) (*Intent, error) {
	src, err := c.RetrieveSource(ctx, orderId)
	if err != nil {
		return nil, err
	}
	return &Intent{Id: src.Id, Status: src.Status}, nil
}

func (c *midtransClient) CreateRefund(ctx context.Context, in RefundInput) (*Refund, error) {
	var out *Refund

	err := c.call(ctx, func() *Error {
		req := &coreapi.RefundReq{
			RefundKey: in.RefundKey,
			Amount:    grossAmount(in.Amount),
			Reason:    in.Reason,
		}

		resp, merr := c.core.RefundTransaction(in.PaymentId, req)
		if merr != nil {
			return classify(merr)
		}

		id := resp.RefundKey
		if id == "" {
			id = strconv.Itoa(resp.RefundChargebackID)
		}
		// Refund finalization is asynchronous at the gateway; callers keep
		// the local row in processing until a webhook confirms settlement.
		out = &Refund{Id: id, Status: StatusProcessing}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
