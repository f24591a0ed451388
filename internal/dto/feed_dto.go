package dto

import "time"

// FeedItem is one real-time update pushed to the staff dashboard over
// WebSocket.
type FeedItem struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
