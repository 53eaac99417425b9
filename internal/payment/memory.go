package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TransferHook observes every successful movement of a MemoryToken.
// It runs after the token's own lock is released, so it may call back into
// whoever initiated the transfer.
type TransferHook func(ctx context.Context, from common.Address, to common.Address, amount *uint256.Int)

type revision struct {
	id           int
	journalIndex int
}

// MemoryToken is an in-process stablecoin ledger. It backs local development
// and tests, and supports journaled snapshots so a failed ledger operation can
// undo the transfers it already made.
type MemoryToken struct {
	mu         sync.Mutex
	address    common.Address
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int

	journal      []func()
	revisions    []revision
	nextRevision int

	hook TransferHook
}

// NewMemoryToken creates an empty token living at address
func NewMemoryToken(address common.Address) *MemoryToken {
	return &MemoryToken{
		address:    address,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// Address returns the address the token is registered under
func (t *MemoryToken) Address() common.Address {
	return t.address
}

// SetTransferHook installs fn to run after every successful transfer
func (t *MemoryToken) SetTransferHook(fn TransferHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = fn
}

// Mint credits amount to `to` out of thin air
func (t *MemoryToken) Mint(to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, overflow := new(uint256.Int).AddOverflow(t.balance(to), amount)
	if overflow {
		return fmt.Errorf("mint overflows balance of %s", to.Hex())
	}
	t.setBalance(to, next)
	return nil
}

// Account is the starting position of one holder of a MemoryToken
type Account struct {
	Address   common.Address
	Balance   *uint256.Int
	Allowance *uint256.Int
}

// Seed credits every account with its balance and sets its allowance to
// spender. Nil amounts are left untouched.
func (t *MemoryToken) Seed(spender common.Address, accounts []Account) error {
	for _, a := range accounts {
		if a.Balance != nil {
			if err := t.Mint(a.Address, a.Balance); err != nil {
				return err
			}
		}
		if a.Allowance != nil {
			t.Approve(a.Address, spender, a.Allowance)
		}
	}
	return nil
}

// Approve sets how much spender may pull from owner
func (t *MemoryToken) Approve(owner common.Address, spender common.Address, amount *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setAllowance(owner, spender, new(uint256.Int).Set(amount))
}

func (t *MemoryToken) BalanceOf(_ context.Context, owner common.Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.balance(owner)), nil
}

func (t *MemoryToken) Allowance(_ context.Context, owner common.Address, spender common.Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.allowance(owner, spender)), nil
}

func (t *MemoryToken) TransferFrom(ctx context.Context, spender common.Address, from common.Address, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	allowance := t.allowance(from, spender)
	if allowance.Lt(amount) {
		t.mu.Unlock()
		return ErrInsufficientAllowance
	}
	if err := t.move(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	t.setAllowance(from, spender, new(uint256.Int).Sub(allowance, amount))
	hook := t.hook
	t.mu.Unlock()

	if hook != nil {
		hook(ctx, from, to, amount)
	}
	return nil
}

func (t *MemoryToken) Transfer(ctx context.Context, from common.Address, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	if err := t.move(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	hook := t.hook
	t.mu.Unlock()

	if hook != nil {
		hook(ctx, from, to, amount)
	}
	return nil
}

// Snapshot opens a revision that RevertToSnapshot can roll back to
func (t *MemoryToken) Snapshot() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextRevision
	t.nextRevision++
	t.revisions = append(t.revisions, revision{id: id, journalIndex: len(t.journal)})
	return id
}

// RevertToSnapshot undoes every change made since revid was opened
func (t *MemoryToken) RevertToSnapshot(revid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.findRevision(revid)
	if idx < 0 {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := t.revisions[idx].journalIndex
	for i := len(t.journal) - 1; i >= snapshot; i-- {
		t.journal[i]()
	}
	t.journal = t.journal[:snapshot]
	t.revisions = t.revisions[:idx]
}

// Commit closes revid and every later revision, keeping their effects
func (t *MemoryToken) Commit(revid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.findRevision(revid)
	if idx < 0 {
		return
	}
	t.revisions = t.revisions[:idx]
	if len(t.revisions) == 0 {
		t.journal = nil
	}
}

func (t *MemoryToken) findRevision(revid int) int {
	idx := sort.Search(len(t.revisions), func(i int) bool {
		return t.revisions[i].id >= revid
	})
	if idx == len(t.revisions) || t.revisions[idx].id != revid {
		return -1
	}
	return idx
}

func (t *MemoryToken) move(from common.Address, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer to the zero address")
	}
	balance := t.balance(from)
	if balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	next, overflow := new(uint256.Int).AddOverflow(t.balance(to), amount)
	if overflow {
		return fmt.Errorf("transfer overflows balance of %s", to.Hex())
	}
	t.setBalance(from, new(uint256.Int).Sub(balance, amount))
	t.setBalance(to, next)
	return nil
}

// record journals an undo step while any revision is open
func (t *MemoryToken) record(undo func()) {
	if len(t.revisions) > 0 {
		t.journal = append(t.journal, undo)
	}
}

func (t *MemoryToken) balance(owner common.Address) *uint256.Int {
	if b, ok := t.balances[owner]; ok {
		return b
	}
	return new(uint256.Int)
}

func (t *MemoryToken) allowance(owner common.Address, spender common.Address) *uint256.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return a
	}
	return new(uint256.Int)
}

func (t *MemoryToken) setBalance(owner common.Address, amount *uint256.Int) {
	prev, had := t.balances[owner]
	t.record(func() {
		if had {
			t.balances[owner] = prev
		} else {
			delete(t.balances, owner)
		}
	})
	t.balances[owner] = amount
}

func (t *MemoryToken) setAllowance(owner common.Address, spender common.Address, amount *uint256.Int) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	prev, had := t.allowances[owner][spender]
	t.record(func() {
		if had {
			t.allowances[owner][spender] = prev
		} else {
			delete(t.allowances[owner], spender)
		}
	})
	t.allowances[owner][spender] = amount
}

// MemoryProvider resolves MemoryTokens registered by address
type MemoryProvider struct {
	mu     sync.RWMutex
	tokens map[common.Address]*MemoryToken
}

// NewMemoryProvider registers every given token
func NewMemoryProvider(tokens ...*MemoryToken) *MemoryProvider {
	p := &MemoryProvider{tokens: make(map[common.Address]*MemoryToken)}
	for _, t := range tokens {
		p.Register(t)
	}
	return p
}

// Register makes t resolvable under its address
func (p *MemoryProvider) Register(t *MemoryToken) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[t.Address()] = t
}

func (p *MemoryProvider) Token(_ context.Context, address common.Address) (Token, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tokens[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, address.Hex())
	}
	return t, nil
}
