package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/midtrans/midtrans-go"
)

type ErrorKind string

const (
	// KindTransient covers timeouts, rate limits and gateway 5xx; the retry
	// coordinator re-attempts these.
	KindTransient ErrorKind = "transient"
	// KindNotRefundable means the gateway refuses to refund this payment.
	KindNotRefundable ErrorKind = "not_refundable"
	// KindExceedsBalance means the amount is above the refundable balance.
	KindExceedsBalance ErrorKind = "exceeds_balance"
	// KindAlreadyRefunded means the charge was refunded before.
	KindAlreadyRefunded ErrorKind = "already_refunded"
	// KindInvalidIdentifier means the gateway does not know the payment id.
	KindInvalidIdentifier ErrorKind = "invalid_identifier"
	// KindInvalidRequest covers everything else the gateway rejected.
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Error is the typed failure returned by every Client call.
type Error struct {
	Kind    ErrorKind
	Message string
	// Unknown marks failures where the gateway-side outcome is not known
	// (client-side timeout). Callers must not treat the operation as failed
	// at the gateway without a follow-up reconciliation.
	Unknown bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s (%s)", e.Message, e.Kind)
}

// Retryable reports whether the failure is worth re-attempting.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// AsError extracts a *Error from any error chain.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsRetryable reports whether err is a transient gateway failure.
func IsRetryable(err error) bool {
	if ge, ok := AsError(err); ok {
		return ge.Retryable()
	}
	return false
}

// classify turns a Midtrans SDK error into a typed Error.
func classify(merr *midtrans.Error) *Error {
	if merr == nil {
		return nil
	}

	msg := merr.GetMessage()
	lower := strings.ToLower(msg)

	switch {
	case merr.StatusCode == 0 && merr.RawError != nil:
		// Never reached the gateway, or the response never came back.
		return &Error{Kind: KindTransient, Message: msg, Unknown: true}
	case merr.StatusCode >= 500 || merr.StatusCode == 429:
		return &Error{Kind: KindTransient, Message: msg}
	case merr.StatusCode == 404:
		return &Error{Kind: KindInvalidIdentifier, Message: msg}
	case merr.StatusCode == 412:
		if strings.Contains(lower, "refund") && strings.Contains(lower, "already") {
			return &Error{Kind: KindAlreadyRefunded, Message: msg}
		}
		return &Error{Kind: KindNotRefundable, Message: msg}
	case merr.StatusCode == 400 && strings.Contains(lower, "amount"):
		return &Error{Kind: KindExceedsBalance, Message: msg}
	default:
		return &Error{Kind: KindInvalidRequest, Message: msg}
	}
}
