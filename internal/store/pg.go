package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// toLedgerEvents converts committed domain events into rows
func toLedgerEvents(events []domain.Event) ([]schema.LedgerEvent, error) {
	rows := make([]schema.LedgerEvent, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
		}
		rows = append(rows, schema.LedgerEvent{
			Sequence:   e.Sequence,
			EventID:    e.ID,
			EventType:  string(e.Type),
			Caller:     e.Caller.Hex(),
			Payload:    datatypes.JSON(payload),
			OccurredAt: e.Timestamp,
		})
	}
	return rows, nil
}

// Commit appends events and replaces the stored snapshot in one transaction.
// Sequences are primary keys, so a second writer replaying the same
// sequences fails instead of forking the log.
func (s *pgStore) Commit(ctx context.Context, events []domain.Event, snapshot *domain.Snapshot) error {
	rows, err := toLedgerEvents(events)
	if err != nil {
		return err
	}

	var snapJSON []byte
	if snapshot != nil {
		snapJSON, err = json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to append ledger events: %w", err)
			}
		}

		if snapJSON == nil {
			return nil
		}
		kv := schema.KeyValueStore{
			Key:   SnapshotKey,
			Value: string(snapJSON),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&kv).Error
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}

// LoadSnapshot returns the latest stored snapshot
func (s *pgStore) LoadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	value, err := s.GetKeyValue(ctx, SnapshotKey)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	logger.DebugCtx(ctx, "Loaded ledger snapshot",
		zap.Uint64("sequence", snap.Sequence),
		zap.Int("tokens", len(snap.TokenOwners)))

	return &snap, nil
}

// ListEvents retrieves ledger events with filtering and cursor-based pagination
func (s *pgStore) ListEvents(ctx context.Context, filter EventQueryFilter) ([]*schema.LedgerEvent, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.LedgerEvent{})

	if filter.After > 0 {
		query = query.Where("sequence > ?", filter.After)
	}
	if len(filter.Types) > 0 {
		query = query.Where("event_type IN ?", filter.Types)
	}
	if filter.Caller != nil {
		query = query.Where("caller = ?", *filter.Caller)
	}
	if filter.Since != nil {
		query = query.Where("occurred_at >= ?", *filter.Since)
	}
	if filter.Unpublished {
		query = query.Where("published_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger events: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}

	var events []*schema.LedgerEvent
	err := query.Order("sequence ASC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger events: %w", err)
	}

	return events, uint64(total), nil //nolint:gosec,G115
}

// MarkEventsPublished records the delivery time of the given sequences
func (s *pgStore) MarkEventsPublished(ctx context.Context, sequences []uint64, at time.Time) error {
	if len(sequences) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Model(&schema.LedgerEvent{}).
		Where("sequence IN ? AND published_at IS NULL", sequences).
		Update("published_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark ledger events published: %w", err)
	}

	return nil
}

// SetKeyValue stores a key-value pair in the key-value store
func (s *pgStore) SetKeyValue(ctx context.Context, key string, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set key-value: %w", err)
	}

	return nil
}

// GetKeyValue retrieves a value by key from the key-value store
func (s *pgStore) GetKeyValue(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get key-value: %w", err)
	}

	return kv.Value, nil
}
