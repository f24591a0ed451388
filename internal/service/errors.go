package service

import "errors"

// Unexpected failures propagate as errors; expected business outcomes come
// back inside the structured responses. These sentinels let controllers map
// validation problems to 400s without string matching.
var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrPaymentNotFound   = errors.New("payment transaction not found")
	ErrRefundNotFound    = errors.New("refund not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrAmountOutOfRange  = errors.New("gateway payments must be between 1 and 50000")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrInvalidReason     = errors.New("invalid refund reason")
	ErrInvalidTransition = errors.New("transition not allowed from the current state")
	ErrPaymentInProgress = errors.New("a payment is already in progress or settled for this booking")
	ErrInvalidSignature  = errors.New("webhook signature verification failed")
)
