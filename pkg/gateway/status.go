package gateway

// Status is the engine's local payment status vocabulary. Every vendor
// status funnels through MapStatus exactly once; orchestration code never
// compares vendor strings.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// statusTable maps Midtrans transaction statuses onto the local enum.
var statusTable = map[string]Status{
	"pending":    StatusPending,
	"authorize":  StatusProcessing,
	"capture":    StatusSucceeded,
	"settlement": StatusSucceeded,
	"deny":       StatusFailed,
	"expire":     StatusFailed,
	"failure":    StatusFailed,
	"cancel":     StatusCancelled,
}

// MapStatus translates a vendor status. Unknown inputs map to pending:
// a status we do not recognize must never be treated as success.
func MapStatus(vendor string) Status {
	if s, ok := statusTable[vendor]; ok {
		return s
	}
	return StatusPending
}

// IsRefundEvent reports whether the vendor status describes a refund
// settlement on the original charge rather than a payment transition.
func IsRefundEvent(vendor string) bool {
	return vendor == "refund" || vendor == "partial_refund"
}
