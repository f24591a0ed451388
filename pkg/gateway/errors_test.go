package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/midtrans/midtrans-go"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		merr        *midtrans.Error
		wantKind    ErrorKind
		wantUnknown bool
	}{
		{
			name:        "network failure is transient and unknown",
			merr:        &midtrans.Error{StatusCode: 0, RawError: errors.New("dial timeout")},
			wantKind:    KindTransient,
			wantUnknown: true,
		},
		{
			name:     "gateway 500 is transient",
			merr:     &midtrans.Error{StatusCode: 500, Message: "internal error"},
			wantKind: KindTransient,
		},
		{
			name:     "rate limit is transient",
			merr:     &midtrans.Error{StatusCode: 429, Message: "too many requests"},
			wantKind: KindTransient,
		},
		{
			name:     "unknown order id",
			merr:     &midtrans.Error{StatusCode: 404, Message: "transaction doesn't exist"},
			wantKind: KindInvalidIdentifier,
		},
		{
			name:     "refund precondition failed",
			merr:     &midtrans.Error{StatusCode: 412, Message: "merchant cannot modify transaction status"},
			wantKind: KindNotRefundable,
		},
		{
			name:     "duplicate refund",
			merr:     &midtrans.Error{StatusCode: 412, Message: "refund has already been requested"},
			wantKind: KindAlreadyRefunded,
		},
		{
			name:     "amount above balance",
			merr:     &midtrans.Error{StatusCode: 400, Message: "refund amount exceeds remaining balance"},
			wantKind: KindExceedsBalance,
		},
		{
			name:     "other rejection",
			merr:     &midtrans.Error{StatusCode: 400, Message: "validation error"},
			wantKind: KindInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.merr)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Unknown != tt.wantUnknown {
				t.Errorf("Unknown = %v, want %v", got.Unknown, tt.wantUnknown)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if !(&Error{Kind: KindTransient}).Retryable() {
		t.Error("transient errors must be retryable")
	}
	for _, kind := range []ErrorKind{KindNotRefundable, KindExceedsBalance, KindAlreadyRefunded, KindInvalidIdentifier, KindInvalidRequest} {
		if (&Error{Kind: kind}).Retryable() {
			t.Errorf("%s must not be retryable", kind)
		}
	}
}

func TestAsError(t *testing.T) {
	ge := &Error{Kind: KindTransient, Message: "upstream 503"}
	wrapped := fmt.Errorf("refund dispatch: %w", ge)

	got, ok := AsError(wrapped)
	if !ok || got.Kind != KindTransient {
		t.Fatalf("AsError failed to unwrap: got %v, ok=%v", got, ok)
	}

	if _, ok := AsError(errors.New("plain")); ok {
		t.Error("plain errors must not unwrap to a gateway error")
	}
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable must see through wrapping")
	}
}
