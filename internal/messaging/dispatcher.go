package messaging

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-yield-ledger/internal/adapter"
	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/store"
	"github.com/feral-file/ff-yield-ledger/internal/store/schema"
)

// EventLog is the part of the store the dispatcher reads from and marks
type EventLog interface {
	ListEvents(ctx context.Context, filter store.EventQueryFilter) ([]*schema.LedgerEvent, uint64, error)
	MarkEventsPublished(ctx context.Context, sequences []uint64, at time.Time) error
}

// DispatcherConfig holds the configuration for the event dispatcher
type DispatcherConfig struct {
	// QueueSize is the number of committed batches that may wait for publishing
	QueueSize int
	// InitialInterval is the first publish retry delay
	InitialInterval time.Duration
	// MaxInterval caps the publish retry delay
	MaxInterval time.Duration
	// MaxElapsedTime gives up on an event after this long. Given-up events
	// stay unpublished in the journal and are caught up from there before
	// anything committed after them is published.
	MaxElapsedTime time.Duration
}

func (c DispatcherConfig) normalize() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.MaxElapsedTime <= 0 {
		c.MaxElapsedTime = 5 * time.Minute
	}
	return c
}

// Dispatcher publishes committed ledger events in commit order. Notify only
// enqueues, so the ledger never waits on the broker. Once an event is given
// up or a batch is dropped on a full queue, the dispatcher is behind: later
// batches are not published ahead of the gap, the worker replays the journal
// from the oldest unpublished event instead.
type Dispatcher struct {
	ctx       context.Context
	config    DispatcherConfig
	publisher Publisher
	events    EventLog
	clock     adapter.Clock
	pool      pond.Pool

	behind atomic.Bool
	// lastPublished is the highest sequence delivered by this process. Only
	// touched by the worker, or by Replay before traffic starts.
	lastPublished uint64
}

// NewDispatcher creates a dispatcher with a single publishing worker bound to ctx
func NewDispatcher(ctx context.Context, cfg DispatcherConfig, publisher Publisher, events EventLog, clock adapter.Clock) *Dispatcher {
	cfg = cfg.normalize()
	return &Dispatcher{
		ctx:       ctx,
		config:    cfg,
		publisher: publisher,
		events:    events,
		clock:     clock,
		// one worker keeps batches in commit order
		pool: pond.NewPool(1,
			pond.WithQueueSize(cfg.QueueSize),
			pond.WithContext(ctx)),
	}
}

// Notify implements ledger.Notifier
func (d *Dispatcher) Notify(events []domain.Event) {
	if len(events) == 0 {
		return
	}

	envelopes := make([]*Envelope, 0, len(events))
	for _, e := range events {
		env, err := NewEnvelope(e)
		if err != nil {
			logger.Error(err, zap.Uint64("sequence", e.Sequence))
			return
		}
		envelopes = append(envelopes, env)
	}

	if _, ok := d.pool.TrySubmit(func() {
		if d.behind.Load() {
			d.catchUp()
			return
		}
		if err := d.publishBatch(d.ctx, envelopes); err != nil {
			d.behind.Store(true)
			logger.ErrorCtx(d.ctx, err, zap.Uint64("first_sequence", envelopes[0].Sequence))
		}
	}); !ok {
		d.behind.Store(true)
		logger.Warn("Dispatcher queue full, events left for replay",
			zap.Uint64("first_sequence", envelopes[0].Sequence),
			zap.Int("count", len(envelopes)))
	}
}

// catchUp publishes from the journal, which already holds the batch that
// triggered it. The dispatcher stays behind until a catch-up completes.
func (d *Dispatcher) catchUp() {
	n, err := d.Replay(d.ctx)
	if err != nil {
		logger.ErrorCtx(d.ctx, fmt.Errorf("failed to catch up from the journal: %w", err),
			zap.Int("published", n))
		return
	}
	d.behind.Store(false)
}

// Replay publishes every journaled event that was never delivered. It runs
// synchronously and should be called before the ledger accepts traffic.
func (d *Dispatcher) Replay(ctx context.Context) (int, error) {
	var (
		after     uint64
		published int
	)
	for {
		rows, _, err := d.events.ListEvents(ctx, store.EventQueryFilter{
			After:       after,
			Unpublished: true,
			Limit:       store.MaxEventLimit,
		})
		if err != nil {
			return published, fmt.Errorf("failed to list unpublished events: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		envelopes := make([]*Envelope, 0, len(rows))
		for _, row := range rows {
			envelopes = append(envelopes, EnvelopeFromRow(row))
		}
		if err := d.publishBatch(ctx, envelopes); err != nil {
			return published, err
		}

		published += len(rows)
		after = rows[len(rows)-1].Sequence
	}

	if published > 0 {
		logger.InfoCtx(ctx, "Replayed unpublished ledger events", zap.Int("count", published))
	}
	return published, nil
}

// publishBatch publishes envelopes in order, retrying each with exponential
// backoff, then marks the delivered ones in the journal
func (d *Dispatcher) publishBatch(ctx context.Context, envelopes []*Envelope) error {
	delivered := make([]uint64, 0, len(envelopes))
	defer func() {
		if len(delivered) == 0 {
			return
		}
		if err := d.events.MarkEventsPublished(ctx, delivered, d.clock.Now()); err != nil {
			logger.ErrorCtx(ctx, err, zap.Int("count", len(delivered)))
		}
	}()

	for _, env := range envelopes {
		// already sent by a catch-up, only the mark is missing
		if env.Sequence > d.lastPublished {
			if err := d.publishWithRetry(ctx, env); err != nil {
				return err
			}
			d.lastPublished = env.Sequence
		}
		delivered = append(delivered, env.Sequence)
	}
	return nil
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, env *Envelope) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.config.InitialInterval
	b.MaxInterval = d.config.MaxInterval
	b.MaxElapsedTime = d.config.MaxElapsedTime

	var attemptCount int
	notifyOnError := func(err error, next time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Publishing ledger event failed, retrying",
			zap.Error(err),
			zap.Uint64("sequence", env.Sequence),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", next),
		)
	}

	operation := func() error {
		return d.publisher.PublishEvent(ctx, env)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError); err != nil {
		return fmt.Errorf("failed to publish event %d after %d attempts: %w", env.Sequence, attemptCount+1, err)
	}
	return nil
}

// Stop waits for queued batches to finish publishing
func (d *Dispatcher) Stop() {
	d.pool.StopAndWait()
}
