package webhook

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/feral-file/ff-yield-ledger/internal/messaging"
)

// EventTypeWildcard is a special filter that matches all event types
const EventTypeWildcard = "*"

// Endpoint is a receiver of ledger events
type Endpoint struct {
	URL string
	// Secret is the hex encoded HMAC key shared with the receiver
	Secret string
	// EventTypes filters deliveries by ledger event type. Empty accepts all.
	EventTypes []string
}

// Accepts reports whether the endpoint subscribed to eventType
func (e Endpoint) Accepts(eventType string) bool {
	if len(e.EventTypes) == 0 {
		return true
	}
	return slices.Contains(e.EventTypes, EventTypeWildcard) || slices.Contains(e.EventTypes, eventType)
}

// WebhookEvent represents a ledger event delivered to a webhook
type WebhookEvent struct {
	// EventID is the ULID of the ledger event, stable across redeliveries
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Sequence  uint64          `json:"sequence"`
	Caller    string          `json:"caller"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewWebhookEvent builds the delivered form of a committed event
func NewWebhookEvent(env *messaging.Envelope) WebhookEvent {
	return WebhookEvent{
		EventID:   env.ID,
		EventType: env.Type,
		Sequence:  env.Sequence,
		Caller:    env.Caller,
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}
}

// DeliveryResult represents the result of a webhook delivery attempt
type DeliveryResult struct {
	// Success indicates whether the endpoint answered with a 2xx status
	Success bool
	// StatusCode is the HTTP status code returned by the webhook endpoint
	StatusCode int
	// Body is the response body (limited to 4KB)
	Body string
	// Error contains error details if delivery failed
	Error string
}
