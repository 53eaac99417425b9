package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/store/schema"
)

// Envelope is the wire form of a committed ledger event. It is built either
// from a freshly committed domain.Event or from a stored journal row.
type Envelope struct {
	ID        string          `json:"id"`
	Sequence  uint64          `json:"sequence"`
	Type      string          `json:"type"`
	Caller    string          `json:"caller"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope encodes a committed event
func NewEnvelope(e domain.Event) (*Envelope, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	return &Envelope{
		ID:        e.ID,
		Sequence:  e.Sequence,
		Type:      string(e.Type),
		Caller:    e.Caller.Hex(),
		Timestamp: e.Timestamp,
		Payload:   payload,
	}, nil
}

// EnvelopeFromRow rebuilds the envelope of a journaled event
func EnvelopeFromRow(row *schema.LedgerEvent) *Envelope {
	return &Envelope{
		ID:        row.EventID,
		Sequence:  row.Sequence,
		Type:      row.EventType,
		Caller:    row.Caller,
		Timestamp: row.OccurredAt,
		Payload:   json.RawMessage(row.Payload),
	}
}

// Publisher defines the interface for publishing ledger events to the message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes one ledger event. Publishing the same event
	// twice must be safe.
	PublishEvent(ctx context.Context, event *Envelope) error
	// Close closes the connection
	Close()
}
