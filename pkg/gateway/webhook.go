package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
)

// WebhookEvent is the parsed, not-yet-trusted gateway notification.
type WebhookEvent struct {
	OrderId           string `json:"order_id"`
	TransactionId     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// VerifySignature checks the Midtrans shared-secret signature:
// SHA512(order_id + status_code + gross_amount + server_key).
// Processing a webhook without a valid signature is never allowed.
func (e *WebhookEvent) VerifySignature(serverKey string) bool {
	input := e.OrderId + e.StatusCode + e.GrossAmount + serverKey
	expected := fmt.Sprintf("%x", sha512.Sum512([]byte(input)))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(e.SignatureKey)) == 1
}

// Known reports whether the event carries a transaction status the engine
// understands. Unknown event types are acknowledged and ignored.
func (e *WebhookEvent) Known() bool {
	if IsRefundEvent(e.TransactionStatus) {
		return true
	}
	_, ok := statusTable[e.TransactionStatus]
	return ok
}
