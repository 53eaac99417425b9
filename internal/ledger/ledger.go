package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-yield-ledger/internal/adapter"
	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/payment"
)

// YieldBasis selects the divisor used to compute the per-token yield share.
// The default is YieldBasisTotalSupply. Collections that pay a fixed share
// per token however many are minted use YieldBasisMaxSupply: 100 USDC over a
// max supply of 100 then pays 1 USDC to every held token, where total_supply
// with 7 tokens minted would pay 14.28 USDC each.
type YieldBasis string

const (
	// YieldBasisTotalSupply divides by every token ever minted. Shares of
	// holders outside the whitelist stay with the payer.
	YieldBasisTotalSupply YieldBasis = "total_supply"
	// YieldBasisMaxSupply divides by the collection size, so each token earns
	// a fixed fraction of the distribution whatever has been minted so far.
	YieldBasisMaxSupply YieldBasis = "max_supply"
	// YieldBasisWhitelistedHoldings splits the whole amount among the tokens
	// held by whitelisted addresses.
	YieldBasisWhitelistedHoldings YieldBasis = "whitelisted_holdings"
)

// Valid reports whether b is a known basis
func (b YieldBasis) Valid() bool {
	return b == YieldBasisTotalSupply || b == YieldBasisMaxSupply || b == YieldBasisWhitelistedHoldings
}

// Params are the construction parameters of a ledger
type Params struct {
	Name    string
	Symbol  string
	BaseURI string

	Owner common.Address
	// OwnerFundReceiptWallet receives every mint and transfer payment.
	// Defaults to Owner when zero.
	OwnerFundReceiptWallet common.Address
	// PaymentToken is the address of the stablecoin contract
	PaymentToken common.Address
	// Spender is the account the ledger pulls payments as; payers grant their
	// allowance to it
	Spender common.Address

	Price        *uint256.Int
	TransferFees *uint256.Int
	MintFees     *uint256.Int
	MaxSupply    uint64

	YieldBasis YieldBasis
}

// Validate checks the construction invariants
func (p *Params) Validate() error {
	if p.OwnerFundReceiptWallet == domain.ZeroAddress {
		p.OwnerFundReceiptWallet = p.Owner
	}
	if p.YieldBasis == "" {
		p.YieldBasis = YieldBasisTotalSupply
	}

	switch {
	case p.Owner == domain.ZeroAddress, p.PaymentToken == domain.ZeroAddress, p.Spender == domain.ZeroAddress:
		return domain.ErrShouldBeAValidAddress
	case p.Price == nil || p.Price.IsZero():
		return domain.ErrPriceMustBeGreaterThan0
	case p.MintFees == nil || p.MintFees.IsZero():
		return domain.ErrMintFeesMustBeGreaterThan0
	case p.TransferFees == nil || p.TransferFees.IsZero():
		return domain.ErrTransferFeesMustBeGreaterThan0
	case p.MaxSupply == 0:
		return domain.ErrMaxSupplyMustBeGreaterThan0
	case !p.YieldBasis.Valid():
		return fmt.Errorf("unknown yield basis %q", p.YieldBasis)
	}
	return nil
}

// Journal persists the events and resulting state of an operation. A failed
// Commit aborts the operation.
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Journal=MockJournal,Notifier=MockNotifier
type Journal interface {
	Commit(ctx context.Context, events []domain.Event, snapshot *domain.Snapshot) error
}

// Notifier is told about events after they are committed. It must not block.
type Notifier interface {
	Notify(events []domain.Event)
}

// Receipt describes a committed operation
type Receipt struct {
	Events []domain.Event `json:"events"`
}

// Option configures a Ledger
type Option func(*Ledger)

// WithJournal persists every committed operation through j
func WithJournal(j Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithNotifier hands every committed batch of events to n
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithClock overrides the clock used to timestamp events
func WithClock(c adapter.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// Ledger is the single serialized owner of all issuance, role and payment
// state. Every entry point runs to completion or leaves no trace.
type Ledger struct {
	mu sync.Mutex
	// settled holds a frozen copy of the last committed state while an
	// operation has handed control to the payment token, nil otherwise
	settled atomic.Pointer[state]

	name    string
	symbol  string
	baseURI string
	spender common.Address
	basis   YieldBasis

	st *state

	tokens   payment.Provider
	journal  Journal
	notifier Notifier
	clock    adapter.Clock
}

// New creates a ledger from its construction parameters
func New(params Params, tokens payment.Provider, opts ...Option) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, errors.New("payment token provider is required")
	}

	l := &Ledger{
		name:    params.Name,
		symbol:  params.Symbol,
		baseURI: params.BaseURI,
		spender: params.Spender,
		basis:   params.YieldBasis,
		st:      newState(params),
		tokens:  tokens,
		clock:   adapter.NewClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Restore replaces the whole state with a persisted snapshot
func (l *Ledger) Restore(snap *domain.Snapshot) error {
	st, err := stateFromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.st = st
	l.name = snap.Name
	l.symbol = snap.Symbol
	l.baseURI = snap.BaseURI
	return nil
}

// Snapshot returns a copy of the current state
func (l *Ledger) Snapshot(ctx context.Context) *domain.Snapshot {
	var snap *domain.Snapshot
	l.view(ctx, func(st *state) {
		snap = st.snapshot(l.name, l.symbol, l.baseURI)
	})
	return snap
}

type inFlightKey struct{}

// inFlight reports whether ctx was issued by one of l's own operations
func (l *Ledger) inFlight(ctx context.Context) bool {
	owner, _ := ctx.Value(inFlightKey{}).(*Ledger)
	return owner == l
}

// view runs fn against the current state. Calls made from inside an
// operation observe its already-applied local effects. Calls arriving while
// an operation waits on the payment token observe the last committed state.
func (l *Ledger) view(ctx context.Context, fn func(st *state)) {
	if l.inFlight(ctx) {
		fn(l.st)
		return
	}
	if l.mu.TryLock() {
		defer l.mu.Unlock()
		fn(l.st)
		return
	}
	if st := l.settled.Load(); st != nil {
		fn(st)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.st)
}

// execute runs op as one all-or-nothing unit. op mutates the live state in
// place; on any failure the state, and the payment token when it supports
// snapshots, are rolled back. Mutations requested while an operation waits
// on the payment token fail with ErrReentrantCall whatever their context.
func (l *Ledger) execute(ctx context.Context, name string, caller common.Address, op func(c *call) error) (*Receipt, error) {
	if l.inFlight(ctx) || l.settled.Load() != nil {
		logger.WarnCtx(ctx, "Rejected reentrant ledger call",
			zap.String("operation", name),
			logger.Address("caller", caller))
		return nil, domain.ErrReentrantCall
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	backup := l.st.clone()
	c := &call{
		ledger: l,
		ctx:    context.WithValue(ctx, inFlightKey{}, l),
		caller: caller,
		st:     l.st,
		backup: backup,
	}

	if err := op(c); err != nil {
		l.rollback(c, backup)
		if le, ok := domain.AsLedgerError(err); ok {
			logger.DebugCtx(ctx, "Ledger operation rejected",
				zap.String("operation", name),
				logger.Address("caller", caller),
				zap.String("code", le.Code))
		} else {
			logger.ErrorCtx(ctx, fmt.Errorf("ledger operation %s failed: %w", name, err),
				logger.Address("caller", caller))
		}
		return nil, err
	}

	events := l.stamp(c)
	if l.journal != nil {
		snap := l.st.snapshot(l.name, l.symbol, l.baseURI)
		if err := l.journal.Commit(ctx, events, snap); err != nil {
			l.rollback(c, backup)
			logger.ErrorCtx(ctx, fmt.Errorf("failed to journal %s: %w", name, err))
			return nil, fmt.Errorf("failed to journal operation: %w", err)
		}
	}
	c.commitPayments()

	logger.InfoCtx(ctx, "Ledger operation committed",
		zap.String("operation", name),
		logger.Address("caller", caller),
		zap.Int("events", len(events)),
		zap.Uint64("sequence", l.st.sequence))

	if l.notifier != nil && len(events) > 0 {
		l.notifier.Notify(events)
	}

	return &Receipt{Events: events}, nil
}

func (l *Ledger) rollback(c *call, backup *state) {
	c.revertPayments()
	l.st = backup
}

// stamp assigns ids, sequence numbers and timestamps to the pending events
func (l *Ledger) stamp(c *call) []domain.Event {
	now := l.clock.Now().UTC()
	events := make([]domain.Event, 0, len(c.pending))
	for _, p := range c.pending {
		l.st.sequence++
		events = append(events, domain.Event{
			ID:        ulid.MustNewDefault(now).String(),
			Sequence:  l.st.sequence,
			Type:      p.EventType(),
			Caller:    c.caller,
			Timestamp: now,
			Payload:   p,
		})
	}
	return events
}

// call is the context of one in-flight operation
type call struct {
	ledger  *Ledger
	ctx     context.Context
	caller  common.Address
	st      *state
	backup  *state
	frozen  *state
	pending []domain.EventPayload

	token      payment.Token
	revertible payment.Snapshotter
	revision   int
	pulled     bool
}

// callout marks the window in which the payment token runs. The returned
// func closes it.
func (c *call) callout() func() {
	if c.frozen == nil {
		c.frozen = c.backup.clone()
	}
	c.ledger.settled.Store(c.frozen)
	return func() { c.ledger.settled.Store(nil) }
}

func (c *call) emit(p domain.EventPayload) {
	c.pending = append(c.pending, p)
}

func (c *call) onlyOwner() error {
	if !c.st.isOwner(c.caller) {
		return domain.ErrNotOwner
	}
	return nil
}

func (c *call) onlyAdminOrOwner() error {
	if !c.st.isAdminOrOwner(c.caller) {
		return domain.ErrNotAdminOrOwner
	}
	return nil
}
