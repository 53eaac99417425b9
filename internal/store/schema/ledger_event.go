package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEvent represents the ledger_events table - the append-only log of
// every committed ledger notification
type LedgerEvent struct {
	// Sequence is assigned by the ledger and is gapless across commits
	Sequence uint64 `gorm:"column:sequence;primaryKey;autoIncrement:false"`
	// EventID is the ULID of the event
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:text"`
	// EventType is the notification name (Mint, CustomTransferFrom, SendYield, ...)
	EventType string `gorm:"column:event_type;not null;type:text"`
	// Caller is the checksummed address that invoked the operation
	Caller string `gorm:"column:caller;not null;type:text"`
	// Payload is the type-specific body as JSON
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// OccurredAt is the commit timestamp of the operation
	OccurredAt time.Time `gorm:"column:occurred_at;not null;type:timestamptz"`
	// PublishedAt is set once the event was delivered to the message broker
	PublishedAt *time.Time `gorm:"column:published_at;type:timestamptz"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the LedgerEvent model
func (LedgerEvent) TableName() string {
	return "ledger_events"
}
