package gateway

import (
	"crypto/sha512"
	"fmt"
	"testing"
)

func signedEvent(orderId, statusCode, grossAmount, serverKey string) WebhookEvent {
	sig := fmt.Sprintf("%x", sha512.Sum512([]byte(orderId+statusCode+grossAmount+serverKey)))
	return WebhookEvent{
		OrderId:      orderId,
		StatusCode:   statusCode,
		GrossAmount:  grossAmount,
		SignatureKey: sig,
	}
}

func TestVerifySignature(t *testing.T) {
	const serverKey = "SB-Mid-server-abc123"

	e := signedEvent("order-1", "200", "250.00", serverKey)
	if !e.VerifySignature(serverKey) {
		t.Fatal("valid signature rejected")
	}

	if e.VerifySignature("some-other-key") {
		t.Error("signature accepted with the wrong server key")
	}

	tampered := e
	tampered.GrossAmount = "1.00"
	if tampered.VerifySignature(serverKey) {
		t.Error("signature accepted after the amount was tampered with")
	}

	forged := e
	forged.SignatureKey = "deadbeef"
	if forged.VerifySignature(serverKey) {
		t.Error("forged signature accepted")
	}

	empty := WebhookEvent{OrderId: "order-1"}
	if empty.VerifySignature(serverKey) {
		t.Error("missing signature accepted")
	}
}

func TestWebhookEventKnown(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"settlement", true},
		{"pending", true},
		{"deny", true},
		{"refund", true},
		{"partial_refund", true},
		{"chargeback", false},
		{"", false},
	}

	for _, tt := range tests {
		e := WebhookEvent{TransactionStatus: tt.status}
		if got := e.Known(); got != tt.want {
			t.Errorf("Known() with status %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}
