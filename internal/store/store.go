package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/store/schema"
)

// SnapshotKey is the key_value_store key holding the latest ledger snapshot
const SnapshotKey = "ledger:snapshot"

// EventQueryFilter narrows ListEvents
type EventQueryFilter struct {
	// After only returns events with a greater sequence
	After uint64
	// Types restricts the event types returned
	Types []string
	// Caller restricts events to one invoking address
	Caller *string
	// Since only returns events that occurred at or after this time
	Since *time.Time
	// Unpublished only returns events not yet delivered to the broker
	Unpublished bool
	// Limit caps the number of events returned. Zero means DefaultEventLimit.
	Limit int
}

const (
	DefaultEventLimit = 100
	MaxEventLimit     = 1000
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Commit appends events and replaces the stored snapshot in one transaction
	Commit(ctx context.Context, events []domain.Event, snapshot *domain.Snapshot) error
	// LoadSnapshot returns the latest stored snapshot, or nil when none was stored yet
	LoadSnapshot(ctx context.Context) (*domain.Snapshot, error)
	// ListEvents returns events in sequence order along with the total matching count
	ListEvents(ctx context.Context, filter EventQueryFilter) ([]*schema.LedgerEvent, uint64, error)
	// MarkEventsPublished records the delivery time of the given sequences
	MarkEventsPublished(ctx context.Context, sequences []uint64, at time.Time) error
	// SetKeyValue stores a key-value pair
	SetKeyValue(ctx context.Context, key string, value string) error
	// GetKeyValue retrieves a value by key, empty when absent
	GetKeyValue(ctx context.Context, key string) (string, error)
}
