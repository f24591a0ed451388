package service

import (
	"context"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/pkg/gateway"
)

// dispatchOutcome is the result of one gateway refund attempt, shared by
// the request path and the retry coordinator.
type dispatchOutcome int

const (
	// dispatchProcessed: the gateway accepted and settled the refund.
	dispatchProcessed dispatchOutcome = iota
	// dispatchInFlight: the gateway accepted the refund but settlement is
	// pending; a webhook will finalize it.
	dispatchInFlight
	// dispatchTransient: the attempt failed in a way worth retrying.
	dispatchTransient
	// dispatchPermanent: the gateway rejected the refund for good.
	dispatchPermanent
	// dispatchUnknown: the outcome is not known (timeout); the row must stay
	// in processing until reconciliation resolves it.
	dispatchUnknown
)

type dispatchResult struct {
	Outcome         dispatchOutcome
	GatewayRefundId string
	FailureReason   string
}

// dispatchGatewayRefund performs one refund call against the gateway and
// classifies the result. orderId is the gateway identifier of the original
// charge. It performs no persistence; callers apply the outcome to the
// ledger themselves.
func dispatchGatewayRefund(ctx context.Context, gw gateway.Client, refund *entity.RefundTransaction, orderId string) dispatchResult {
	res, err := gw.CreateRefund(ctx, gateway.RefundInput{
		PaymentId: orderId,
		RefundKey: refund.Id.String(),
		Amount:    refund.Amount,
		Reason:    string(refund.Reason),
	})
	if err == nil {
		if res.Status == gateway.StatusSucceeded {
			return dispatchResult{Outcome: dispatchProcessed, GatewayRefundId: res.Id}
		}
		return dispatchResult{Outcome: dispatchInFlight, GatewayRefundId: res.Id}
	}

	ge, ok := gateway.AsError(err)
	if !ok {
		return dispatchResult{Outcome: dispatchTransient, FailureReason: err.Error()}
	}

	switch {
	case ge.Unknown:
		return dispatchResult{Outcome: dispatchUnknown, FailureReason: ge.Message}
	case ge.Kind == gateway.KindAlreadyRefunded:
		// The gateway already holds this refund; treat the retry as settled.
		return dispatchResult{Outcome: dispatchProcessed, FailureReason: ge.Message}
	case ge.Retryable():
		return dispatchResult{Outcome: dispatchTransient, FailureReason: ge.Message}
	default:
		return dispatchResult{Outcome: dispatchPermanent, FailureReason: ge.Message}
	}
}
