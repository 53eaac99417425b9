package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/ledger"
	"github.com/feral-file/ff-yield-ledger/internal/payment"
)

var treasury = common.HexToAddress("0x00000000000000000000000000000000000000f1")

// setupYield mints 5, 1 and 1 tokens to user1, user2 and user3 and gives the
// owner 1000 USDC approved to the ledger. Mint payments go to a separate
// treasury so the owner balance only moves with distributions.
func setupYield(t *testing.T, basis ledger.YieldBasis) *testLedger {
	tl := setupTestLedger(t, func(p *ledger.Params) {
		p.OwnerFundReceiptWallet = treasury
		p.YieldBasis = basis
	})
	tl.whitelist(user1, user2, user3)
	tl.mint(user1, 5)
	tl.mint(user2, 1)
	tl.mint(user3, 1)
	tl.fund(owner, usdc(1000))
	return tl
}

func yieldPayouts(r *ledger.Receipt) map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int)
	for _, e := range eventsOf(r, domain.EventSendYield) {
		p := e.Payload.(domain.SendYield)
		out[p.To] = p.CurrentYieldSendForToWallet
	}
	return out
}

func TestSendYield_Bases(t *testing.T) {
	tests := []struct {
		name       string
		basis      ledger.YieldBasis
		remove     *common.Address
		want       map[common.Address]uint64
		wantRemain uint64
	}{
		{
			name:       "max supply",
			basis:      ledger.YieldBasisMaxSupply,
			want:       map[common.Address]uint64{user1: 5_000_000, user2: 1_000_000, user3: 1_000_000},
			wantRemain: 993_000_000,
		},
		{
			name:       "max supply without user2",
			basis:      ledger.YieldBasisMaxSupply,
			remove:     &user2,
			want:       map[common.Address]uint64{user1: 5_000_000, user3: 1_000_000},
			wantRemain: 994_000_000,
		},
		{
			name:       "total supply",
			basis:      ledger.YieldBasisTotalSupply,
			want:       map[common.Address]uint64{user1: 71_428_570, user2: 14_285_714, user3: 14_285_714},
			wantRemain: 900_000_002,
		},
		{
			name:       "total supply without user2",
			basis:      ledger.YieldBasisTotalSupply,
			remove:     &user2,
			want:       map[common.Address]uint64{user1: 71_428_570, user3: 14_285_714},
			wantRemain: 914_285_716,
		},
		{
			name:       "whitelisted holdings",
			basis:      ledger.YieldBasisWhitelistedHoldings,
			want:       map[common.Address]uint64{user1: 71_428_570, user2: 14_285_714, user3: 14_285_714},
			wantRemain: 900_000_002,
		},
		{
			name:       "whitelisted holdings without user2",
			basis:      ledger.YieldBasisWhitelistedHoldings,
			remove:     &user2,
			want:       map[common.Address]uint64{user1: 83_333_330, user3: 16_666_666},
			wantRemain: 900_000_004,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := setupYield(t, tt.basis)
			if tt.remove != nil {
				_, err := tl.ledger.RemoveFromWhitelist(tl.ctx, owner, *tt.remove)
				require.NoError(t, err)
			}

			r, err := tl.ledger.SendYield(tl.ctx, owner, usdc(100))
			require.NoError(t, err)

			payouts := yieldPayouts(r)
			require.Len(t, payouts, len(tt.want))
			for addr, amount := range tt.want {
				assert.Equal(t, uint256.NewInt(amount), payouts[addr], addr.Hex())
				assert.Equal(t, uint256.NewInt(amount), tl.balance(addr), addr.Hex())
			}
			for _, e := range r.Events {
				assert.Equal(t, usdc(100), e.Payload.(domain.SendYield).TotalRentAmount)
			}
			assert.Equal(t, uint256.NewInt(tt.wantRemain), tl.balance(owner))
			if tt.remove != nil {
				assert.True(t, tl.balance(*tt.remove).IsZero())
			}
		})
	}
}

func TestSendYield_WhitelistOrder(t *testing.T) {
	tl := setupYield(t, ledger.YieldBasisMaxSupply)
	_, err := tl.ledger.RemoveFromWhitelist(tl.ctx, owner, user1)
	require.NoError(t, err)
	tl.whitelist(user1)

	r, err := tl.ledger.SendYield(tl.ctx, owner, usdc(100))
	require.NoError(t, err)

	var order []common.Address
	for _, e := range r.Events {
		order = append(order, e.Payload.(domain.SendYield).To)
	}
	assert.Equal(t, []common.Address{user3, user2, user1}, order)
}

func TestSendYield_SingleHolderTakesAll(t *testing.T) {
	tl := setupTestLedger(t, nil)
	tl.whitelist(user1, user2)
	tl.mint(user1, 1)
	tl.fund(owner, usdc(100))

	r, err := tl.ledger.SendYield(tl.ctx, owner, usdc(100))
	require.NoError(t, err)
	require.Len(t, r.Events, 1)
	assert.Equal(t, domain.SendYield{
		To:                          user1,
		TotalRentAmount:             usdc(100),
		CurrentYieldSendForToWallet: usdc(100),
	}, r.Events[0].Payload)
	assert.Equal(t, usdc(100), tl.balance(user1))
}

func TestSendYield_ZeroShares(t *testing.T) {
	tl := setupYield(t, ledger.YieldBasisTotalSupply)

	r, err := tl.ledger.SendYield(tl.ctx, owner, uint256.NewInt(5))
	require.NoError(t, err)

	// every holder still gets a payout and an event
	require.Len(t, r.Events, 3)
	for _, amount := range yieldPayouts(r) {
		assert.True(t, amount.IsZero())
	}
	assert.Equal(t, usdc(1000), tl.balance(owner))
}

func TestSendYield_Failures(t *testing.T) {
	t.Run("not owner", func(t *testing.T) {
		tl := setupYield(t, ledger.YieldBasisTotalSupply)
		_, err := tl.ledger.AddAdmin(tl.ctx, owner, admin)
		require.NoError(t, err)

		_, err = tl.ledger.SendYield(tl.ctx, admin, usdc(1))
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("empty whitelist", func(t *testing.T) {
		tl := setupTestLedger(t, nil)
		_, err := tl.ledger.SendYield(tl.ctx, owner, usdc(1))
		assert.ErrorIs(t, err, domain.ErrEmptyArray)
	})

	t.Run("nothing minted", func(t *testing.T) {
		tl := setupTestLedger(t, nil)
		tl.whitelist(user1)
		tl.fund(owner, usdc(100))
		_, err := tl.ledger.SendYield(tl.ctx, owner, usdc(100))
		assert.ErrorIs(t, err, domain.ErrNoNftMintedSoNothingToSend)
	})

	t.Run("only non-whitelisted holders", func(t *testing.T) {
		tl := setupTestLedger(t, nil)
		tl.whitelist(user1, user2)
		tl.mint(user1, 1)
		_, err := tl.ledger.RemoveFromWhitelist(tl.ctx, owner, user1)
		require.NoError(t, err)
		tl.fund(owner, usdc(100))

		_, err = tl.ledger.SendYield(tl.ctx, owner, usdc(100))
		assert.ErrorIs(t, err, domain.ErrNoNftMintedSoNothingToSend)
	})

	t.Run("allowance", func(t *testing.T) {
		tl := setupYield(t, ledger.YieldBasisTotalSupply)
		_, err := tl.ledger.SendYield(tl.ctx, owner, usdc(1001))
		assert.ErrorIs(t, err, domain.ErrNotEnoughUSDCAllowed)
	})

	t.Run("balance", func(t *testing.T) {
		tl := setupYield(t, ledger.YieldBasisTotalSupply)
		tl.usdc.Approve(owner, spender, usdc(5000))
		_, err := tl.ledger.SendYield(tl.ctx, owner, usdc(1001))
		assert.ErrorIs(t, err, domain.ErrNotEnoughUSDCInBalance)
	})
}

// failingToken refuses payouts to one recipient
type failingToken struct {
	*payment.MemoryToken
	recipient common.Address
}

func (f *failingToken) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error {
	if to == f.recipient {
		return errors.New("recipient is blacklisted")
	}
	return f.MemoryToken.TransferFrom(ctx, spender, from, to, amount)
}

func TestSendYield_AllOrNothing(t *testing.T) {
	tl := setupYield(t, ledger.YieldBasisMaxSupply)
	snap := tl.ledger.Snapshot(tl.ctx)

	token := &failingToken{MemoryToken: tl.usdc, recipient: user3}
	l, err := ledger.New(defaultParams(), providerFunc(func(ctx context.Context, address common.Address) (payment.Token, error) {
		return token, nil
	}))
	require.NoError(t, err)
	require.NoError(t, l.Restore(snap))

	_, err = l.SendYield(tl.ctx, owner, usdc(100))
	require.Error(t, err)

	// user1 and user2 were paid before user3 failed; both are rolled back
	assert.True(t, tl.balance(user1).IsZero())
	assert.True(t, tl.balance(user2).IsZero())
	assert.Equal(t, usdc(1000), tl.balance(owner))
	allowance, err := tl.usdc.Allowance(tl.ctx, owner, spender)
	require.NoError(t, err)
	assert.Equal(t, usdc(1000), allowance)
	assert.Equal(t, snap, l.Snapshot(tl.ctx))
}

func TestPlanYield(t *testing.T) {
	tl := setupYield(t, ledger.YieldBasisTotalSupply)
	before := tl.ledger.Snapshot(tl.ctx)

	plan, err := tl.ledger.PlanYield(tl.ctx, usdc(100))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), plan.Divisor)
	assert.Equal(t, uint256.NewInt(14_285_714), plan.PerTokenShare)
	require.Len(t, plan.Payouts, 3)
	assert.Equal(t, ledger.Payout{To: user1, Holding: 5, Amount: uint256.NewInt(71_428_570)}, plan.Payouts[0])

	// planning moves nothing
	assert.Equal(t, before, tl.ledger.Snapshot(tl.ctx))
	assert.Equal(t, usdc(1000), tl.balance(owner))

	empty := setupTestLedger(t, nil)
	_, err = empty.ledger.PlanYield(empty.ctx, usdc(1))
	assert.ErrorIs(t, err, domain.ErrEmptyArray)
}
