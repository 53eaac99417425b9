package ledger_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/ledger"
)

// setupTransfer mints token 0 to user1 and whitelists user2
func setupTransfer(t *testing.T) *testLedger {
	tl := setupTestLedger(t, nil)
	tl.whitelist(user1, user2)
	tl.mint(user1, 1)
	return tl
}

func TestTransferFrom(t *testing.T) {
	tl := setupTransfer(t)
	ownerBefore := tl.balance(owner)
	tl.fund(user1, usdc(1))

	r, err := tl.ledger.TransferFrom(tl.ctx, user1, user1, user2, 0)
	require.NoError(t, err)

	holder, err := tl.ledger.OwnerOf(tl.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, user2, holder)
	assert.True(t, tl.balance(user1).IsZero())
	assert.Equal(t, new(uint256.Int).Add(ownerBefore, usdc(1)), tl.balance(owner))

	require.Len(t, r.Events, 2)
	assert.Equal(t, domain.Transfer{From: user1, To: user2, TokenID: 0}, r.Events[0].Payload)
	assert.Equal(t, domain.CustomTransferFrom{
		From:                   user1,
		To:                     user2,
		TokenID:                0,
		TransferFees:           usdc(1),
		OwnerFundReceiptWallet: owner,
	}, r.Events[1].Payload)

	n, err := tl.ledger.BalanceOf(tl.ctx, user1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
	n, err = tl.ledger.BalanceOf(tl.ctx, user2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestSafeTransferFrom(t *testing.T) {
	tl := setupTransfer(t)
	tl.fund(user1, usdc(1))

	r, err := tl.ledger.SafeTransferFrom(tl.ctx, user1, user1, user2, 0)
	require.NoError(t, err)
	assert.Len(t, eventsOf(r, domain.EventCustomTransferFrom), 1)

	holder, err := tl.ledger.OwnerOf(tl.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, user2, holder)
}

func TestTransferFrom_GateOrder(t *testing.T) {
	type transferFn func(l *ledger.Ledger, ctx context.Context, caller, from, to common.Address, id uint64) (*ledger.Receipt, error)

	tests := []struct {
		name    string
		setup   func(tl *testLedger)
		caller  common.Address
		from    common.Address
		to      common.Address
		id      uint64
		wantErr error
	}{
		{
			name:    "destination checked first",
			setup:   func(tl *testLedger) {},
			caller:  outsider,
			from:    user2,
			to:      user3,
			id:      42,
			wantErr: domain.ErrWalletNotWhitelisted,
		},
		{
			name:    "fee allowance before ownership rules",
			setup:   func(tl *testLedger) {},
			caller:  outsider,
			from:    user2,
			to:      user2,
			id:      42,
			wantErr: domain.ErrNotEnoughUSDCAllowed,
		},
		{
			name:    "fee balance before ownership rules",
			setup:   func(tl *testLedger) { tl.usdc.Approve(user1, spender, usdc(1)) },
			caller:  user1,
			from:    user1,
			to:      user2,
			id:      0,
			wantErr: domain.ErrNotEnoughUSDCInBalance,
		},
		{
			name:    "nonexistent token",
			setup:   func(tl *testLedger) { tl.fund(user1, usdc(1)) },
			caller:  user1,
			from:    user1,
			to:      user2,
			id:      7,
			wantErr: domain.ErrOwnerQueryForNonexistentToken,
		},
		{
			name:    "wrong owner",
			setup:   func(tl *testLedger) { tl.fund(user2, usdc(1)) },
			caller:  user2,
			from:    user2,
			to:      user2,
			id:      0,
			wantErr: domain.ErrTransferFromIncorrectOwner,
		},
		{
			name:    "caller not approved",
			setup:   func(tl *testLedger) { tl.fund(user2, usdc(1)) },
			caller:  user2,
			from:    user1,
			to:      user2,
			id:      0,
			wantErr: domain.ErrTransferCallerNotOwnerNorApproved,
		},
		{
			name: "zero destination",
			setup: func(tl *testLedger) {
				tl.whitelist(domain.ZeroAddress)
				tl.fund(user1, usdc(1))
			},
			caller:  user1,
			from:    user1,
			to:      domain.ZeroAddress,
			id:      0,
			wantErr: domain.ErrTransferToZeroAddress,
		},
	}

	for name, fn := range map[string]transferFn{
		"transferFrom":     (*ledger.Ledger).TransferFrom,
		"safeTransferFrom": (*ledger.Ledger).SafeTransferFrom,
	} {
		t.Run(name, func(t *testing.T) {
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					tl := setupTransfer(t)
					tt.setup(tl)
					before := tl.ledger.Snapshot(tl.ctx)

					_, err := fn(tl.ledger, tl.ctx, tt.caller, tt.from, tt.to, tt.id)
					assert.ErrorIs(t, err, tt.wantErr)
					assert.Equal(t, before, tl.ledger.Snapshot(tl.ctx))
				})
			}
		})
	}
}

func TestTransferFrom_ApprovedCallerPaysFee(t *testing.T) {
	tl := setupTransfer(t)
	tl.whitelist(user3)

	_, err := tl.ledger.Approve(tl.ctx, user1, admin, 0)
	require.NoError(t, err)
	tl.fund(admin, usdc(1))

	// the destination must be whitelisted, the caller need not be
	_, err = tl.ledger.TransferFrom(tl.ctx, admin, user1, user3, 0)
	require.NoError(t, err)

	holder, err := tl.ledger.OwnerOf(tl.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, user3, holder)
	assert.True(t, tl.balance(admin).IsZero())

	// the single-token approval is cleared by the transfer
	approved, err := tl.ledger.GetApproved(tl.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ZeroAddress, approved)
}

func TestTransferFrom_Operator(t *testing.T) {
	tl := setupTransfer(t)
	_, err := tl.ledger.SetApprovalForAll(tl.ctx, user1, user2, true)
	require.NoError(t, err)
	tl.fund(user2, usdc(1))

	_, err = tl.ledger.TransferFrom(tl.ctx, user2, user1, user2, 0)
	require.NoError(t, err)

	holder, err := tl.ledger.OwnerOf(tl.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, user2, holder)
}

func TestTransferFrom_FeeFollowsSettings(t *testing.T) {
	tl := setupTransfer(t)
	tl.whitelist(user3)
	_, err := tl.ledger.SetTransferFees(tl.ctx, owner, usdc(3))
	require.NoError(t, err)
	_, err = tl.ledger.SetOwnerFundReceiptWallet(tl.ctx, owner, user3)
	require.NoError(t, err)

	tl.fund(user1, usdc(2))
	_, err = tl.ledger.TransferFrom(tl.ctx, user1, user1, user2, 0)
	assert.ErrorIs(t, err, domain.ErrNotEnoughUSDCAllowed)

	tl.fund(user1, usdc(1))
	r, err := tl.ledger.TransferFrom(tl.ctx, user1, user1, user2, 0)
	require.NoError(t, err)
	assert.Equal(t, usdc(3), tl.balance(user3))

	custom := eventsOf(r, domain.EventCustomTransferFrom)
	require.Len(t, custom, 1)
	payload := custom[0].Payload.(domain.CustomTransferFrom)
	assert.Equal(t, user3, payload.OwnerFundReceiptWallet)
	assert.Equal(t, usdc(3), payload.TransferFees)
}
