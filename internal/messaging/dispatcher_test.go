package messaging_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-yield-ledger/internal/adapter"
	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/messaging"
	"github.com/feral-file/ff-yield-ledger/internal/mocks"
	"github.com/feral-file/ff-yield-ledger/internal/store"
	"github.com/feral-file/ff-yield-ledger/internal/store/schema"
)

var minter = common.HexToAddress("0x00000000000000000000000000000000000000b1")

func fastConfig() messaging.DispatcherConfig {
	return messaging.DispatcherConfig{
		QueueSize:       8,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  50 * time.Millisecond,
	}
}

func committedEvents() []domain.Event {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []domain.Event{
		{
			ID: "01J0000000000000000000000A", Sequence: 1, Type: domain.EventTransfer,
			Caller: minter, Timestamp: ts,
			Payload: domain.Transfer{From: domain.ZeroAddress, To: minter, TokenID: 0},
		},
		{
			ID: "01J0000000000000000000000B", Sequence: 2, Type: domain.EventMint,
			Caller: minter, Timestamp: ts,
			Payload: domain.Mint{
				Minter: minter, Receiver: minter, Quantity: 1,
				TotalPrice: uint256.NewInt(10_000_100), TotalMintFees: uint256.NewInt(100),
			},
		},
	}
}

// sequenceIs matches an envelope by sequence number
type sequenceIs uint64

func (s sequenceIs) Matches(x interface{}) bool {
	env, ok := x.(*messaging.Envelope)
	return ok && env.Sequence == uint64(s)
}

func (s sequenceIs) String() string {
	return "envelope with the given sequence"
}

func TestNewEnvelope(t *testing.T) {
	env, err := messaging.NewEnvelope(committedEvents()[1])
	require.NoError(t, err)

	assert.Equal(t, "Mint", env.Type)
	assert.Equal(t, uint64(2), env.Sequence)
	assert.Equal(t, minter.Hex(), env.Caller)
	assert.JSONEq(t, `{
		"minter": "0x00000000000000000000000000000000000000b1",
		"receiver": "0x00000000000000000000000000000000000000b1",
		"quantity": 1,
		"totalPrice": "10000100",
		"totalMintFees": "100",
		"firstTokenIdMinted": 0
	}`, string(env.Payload))
}

func TestDispatcher_Notify(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	events := mocks.NewMockStore(ctrl)

	done := make(chan struct{})
	gomock.InOrder(
		publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(1)).Return(nil),
		publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(2)).Return(nil),
		events.EXPECT().
			MarkEventsPublished(gomock.Any(), []uint64{1, 2}, gomock.Any()).
			DoAndReturn(func(ctx context.Context, seqs []uint64, at time.Time) error {
				close(done)
				return nil
			}),
	)

	d := messaging.NewDispatcher(context.Background(), fastConfig(), publisher, events, adapter.NewClock())
	d.Notify(committedEvents())
	d.Notify(nil)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events were not published")
	}
	d.Stop()
}

func TestDispatcher_RetriesPublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	events := mocks.NewMockStore(ctrl)

	gomock.InOrder(
		publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(1)).Return(errors.New("nats: timeout")),
		publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(1)).Return(nil),
		publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(2)).Return(nil),
		events.EXPECT().MarkEventsPublished(gomock.Any(), []uint64{1, 2}, gomock.Any()).Return(nil),
	)

	d := messaging.NewDispatcher(context.Background(), fastConfig(), publisher, events, adapter.NewClock())
	d.Notify(committedEvents())
	d.Stop()
}

func TestDispatcher_GivesUpAndMarksDelivered(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	events := mocks.NewMockStore(ctrl)

	publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(1)).Return(nil)
	publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(2)).Return(errors.New("nats: no responders")).MinTimes(1)
	// only the delivered event is marked, the other stays for replay
	events.EXPECT().MarkEventsPublished(gomock.Any(), []uint64{1}, gomock.Any()).Return(nil)

	d := messaging.NewDispatcher(context.Background(), fastConfig(), publisher, events, adapter.NewClock())
	d.Notify(committedEvents())
	d.Stop()
}

func whitelistEvent(seq uint64) domain.Event {
	return domain.Event{
		ID: fmt.Sprintf("01J00000000000000000000%03d", seq), Sequence: seq, Type: domain.EventAddedToWhitelist,
		Caller: minter, Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Payload: domain.AddedToWhitelist{NewWhitelistedWallet: minter},
	}
}

func journalRow(seq uint64) *schema.LedgerEvent {
	return &schema.LedgerEvent{
		Sequence: seq, EventID: fmt.Sprintf("01J00000000000000000000%03d", seq), EventType: "AddedToWhitelist",
		Caller: minter.Hex(), Payload: datatypes.JSON(`{"newWhitelistedWallet":"0x00000000000000000000000000000000000000b1"}`),
	}
}

func TestDispatcher_CatchesUpFromJournalAfterGivingUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	events := mocks.NewMockStore(ctrl)

	var (
		brokerDown atomic.Bool
		published  []uint64
	)
	brokerDown.Store(true)
	publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, env *messaging.Envelope) error {
			if env.Sequence == 2 && brokerDown.Load() {
				return errors.New("nats: no responders")
			}
			published = append(published, env.Sequence)
			return nil
		}).AnyTimes()

	gaveUp := make(chan struct{})
	gomock.InOrder(
		events.EXPECT().MarkEventsPublished(gomock.Any(), []uint64{1}, gomock.Any()).
			DoAndReturn(func(context.Context, []uint64, time.Time) error {
				close(gaveUp)
				return nil
			}),
		// the next batch triggers a catch-up that starts at the gap
		events.EXPECT().
			ListEvents(gomock.Any(), store.EventQueryFilter{Unpublished: true, Limit: store.MaxEventLimit}).
			Return([]*schema.LedgerEvent{journalRow(2), journalRow(3)}, uint64(2), nil),
		events.EXPECT().MarkEventsPublished(gomock.Any(), []uint64{2, 3}, gomock.Any()).Return(nil),
		events.EXPECT().
			ListEvents(gomock.Any(), store.EventQueryFilter{After: 3, Unpublished: true, Limit: store.MaxEventLimit}).
			Return(nil, uint64(0), nil),
		// caught up, batches flow directly again
		events.EXPECT().MarkEventsPublished(gomock.Any(), []uint64{4}, gomock.Any()).Return(nil),
	)

	d := messaging.NewDispatcher(context.Background(), fastConfig(), publisher, events, adapter.NewClock())
	d.Notify(committedEvents())

	select {
	case <-gaveUp:
	case <-time.After(5 * time.Second):
		t.Fatal("first batch never gave up")
	}
	brokerDown.Store(false)

	d.Notify([]domain.Event{whitelistEvent(3)})
	d.Notify([]domain.Event{whitelistEvent(4)})
	d.Stop()

	assert.Equal(t, []uint64{1, 2, 3, 4}, published, "nothing overtakes the given-up event")
}

func TestDispatcher_Replay(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	events := mocks.NewMockStore(ctrl)

	rows := []*schema.LedgerEvent{
		{Sequence: 4, EventID: "01J0000000000000000000000D", EventType: "SetNewPrice", Caller: minter.Hex(), Payload: datatypes.JSON(`{"newPrice":"5"}`)},
		{Sequence: 5, EventID: "01J0000000000000000000000E", EventType: "SetNewMintFees", Caller: minter.Hex(), Payload: datatypes.JSON(`{"newMintFees":"1"}`)},
	}

	gomock.InOrder(
		events.EXPECT().
			ListEvents(gomock.Any(), store.EventQueryFilter{Unpublished: true, Limit: store.MaxEventLimit}).
			Return(rows, uint64(2), nil),
		publisher.EXPECT().
			PublishEvent(gomock.Any(), sequenceIs(4)).
			DoAndReturn(func(ctx context.Context, env *messaging.Envelope) error {
				assert.Equal(t, "SetNewPrice", env.Type)
				assert.JSONEq(t, `{"newPrice":"5"}`, string(env.Payload))
				return nil
			}),
		publisher.EXPECT().PublishEvent(gomock.Any(), sequenceIs(5)).Return(nil),
		events.EXPECT().MarkEventsPublished(gomock.Any(), []uint64{4, 5}, gomock.Any()).Return(nil),
		events.EXPECT().
			ListEvents(gomock.Any(), store.EventQueryFilter{After: 5, Unpublished: true, Limit: store.MaxEventLimit}).
			Return(nil, uint64(0), nil),
	)

	d := messaging.NewDispatcher(context.Background(), fastConfig(), publisher, events, adapter.NewClock())
	defer d.Stop()

	n, err := d.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDispatcher_ReplayListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	events := mocks.NewMockStore(ctrl)

	events.EXPECT().ListEvents(gomock.Any(), gomock.Any()).Return(nil, uint64(0), errors.New("connection refused"))

	d := messaging.NewDispatcher(context.Background(), fastConfig(), publisher, events, adapter.NewClock())
	defer d.Stop()

	_, err := d.Replay(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}
