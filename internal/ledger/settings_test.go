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
	"github.com/feral-file/ff-yield-ledger/internal/payment"
)

func TestAmountSetters(t *testing.T) {
	type setter func(l *ledger.Ledger, ctx context.Context, caller common.Address, v *uint256.Int) (*ledger.Receipt, error)

	tests := []struct {
		name    string
		set     setter
		get     func(l *ledger.Ledger, ctx context.Context) *uint256.Int
		current *uint256.Int
		next    *uint256.Int
		errZero error
		errSame error
		event   func(v *uint256.Int) domain.EventPayload
	}{
		{
			name:    "price",
			set:     (*ledger.Ledger).SetPrice,
			get:     (*ledger.Ledger).Price,
			current: usdc(10),
			next:    usdc(20),
			errZero: domain.ErrPriceMustBeGreaterThan0,
			errSame: domain.ErrPriceIsSameAsCurrent,
			event:   func(v *uint256.Int) domain.EventPayload { return domain.SetNewPrice{NewPrice: v} },
		},
		{
			name:    "mint fees",
			set:     (*ledger.Ledger).SetMintFees,
			get:     (*ledger.Ledger).MintFees,
			current: uint256.NewInt(100),
			next:    uint256.NewInt(200),
			errZero: domain.ErrMintFeesMustBeGreaterThan0,
			errSame: domain.ErrMintFeesIsSameAsCurrent,
			event:   func(v *uint256.Int) domain.EventPayload { return domain.SetNewMintFees{NewMintFees: v} },
		},
		{
			name:    "transfer fees",
			set:     (*ledger.Ledger).SetTransferFees,
			get:     (*ledger.Ledger).TransferFees,
			current: usdc(1),
			next:    usdc(2),
			errZero: domain.ErrTransferFeesMustBeGreaterThan0,
			errSame: domain.ErrTransferFeesIsSameAsCurrent,
			event:   func(v *uint256.Int) domain.EventPayload { return domain.SetNewTransferFees{NewTransferFees: v} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := setupTestLedger(t, nil)
			_, err := tl.ledger.AddAdmin(tl.ctx, owner, admin)
			require.NoError(t, err)

			_, err = tt.set(tl.ledger, tl.ctx, user1, tt.next)
			assert.ErrorIs(t, err, domain.ErrNotAdminOrOwner)

			_, err = tt.set(tl.ledger, tl.ctx, owner, uint256.NewInt(0))
			assert.ErrorIs(t, err, tt.errZero)

			_, err = tt.set(tl.ledger, tl.ctx, owner, tt.current)
			assert.ErrorIs(t, err, tt.errSame)
			assert.Equal(t, tt.current, tt.get(tl.ledger, tl.ctx))

			r, err := tt.set(tl.ledger, tl.ctx, admin, tt.next)
			require.NoError(t, err)
			require.Len(t, r.Events, 1)
			assert.Equal(t, tt.event(tt.next), r.Events[0].Payload)
			assert.Equal(t, tt.next, tt.get(tl.ledger, tl.ctx))

			// the stored value is not aliased to the caller's argument
			tt.next.SetUint64(1)
			assert.NotEqual(t, tt.next, tt.get(tl.ledger, tl.ctx))
		})
	}
}

func TestSetOwnerFundReceiptWallet(t *testing.T) {
	tl := setupTestLedger(t, nil)
	_, err := tl.ledger.AddAdmin(tl.ctx, owner, admin)
	require.NoError(t, err)

	_, err = tl.ledger.SetOwnerFundReceiptWallet(tl.ctx, admin, user3)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = tl.ledger.SetOwnerFundReceiptWallet(tl.ctx, owner, domain.ZeroAddress)
	assert.ErrorIs(t, err, domain.ErrShouldBeAValidAddress)

	_, err = tl.ledger.SetOwnerFundReceiptWallet(tl.ctx, owner, owner)
	assert.ErrorIs(t, err, domain.ErrShouldBeADifferentAddressThanCurrent)

	r, err := tl.ledger.SetOwnerFundReceiptWallet(tl.ctx, owner, user3)
	require.NoError(t, err)
	assert.Equal(t, domain.SetNewOwnerFundReceiptWallet{NewOwnerFundReceiptWallet: user3}, r.Events[0].Payload)
	assert.Equal(t, user3, tl.ledger.OwnerFundReceiptWallet(tl.ctx))

	// later payments go to the new wallet
	tl.whitelist(user1)
	tl.mint(user1, 1)
	assert.Equal(t, uint256.NewInt(10_000_100), tl.balance(user3))
	assert.True(t, tl.balance(owner).IsZero())
}

func TestSetUsdcAddress(t *testing.T) {
	tl := setupTestLedger(t, nil)
	_, err := tl.ledger.AddAdmin(tl.ctx, owner, admin)
	require.NoError(t, err)

	_, err = tl.ledger.SetUsdcAddress(tl.ctx, admin, outsider)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = tl.ledger.SetUsdcAddress(tl.ctx, owner, domain.ZeroAddress)
	assert.ErrorIs(t, err, domain.ErrShouldBeAValidAddress)

	_, err = tl.ledger.SetUsdcAddress(tl.ctx, owner, usdcAddr)
	assert.ErrorIs(t, err, domain.ErrShouldBeADifferentAddressThanCurrent)

	r, err := tl.ledger.SetUsdcAddress(tl.ctx, owner, outsider)
	require.NoError(t, err)
	assert.Equal(t, domain.SetNewUsdcAddress{NewUsdcAddress: outsider}, r.Events[0].Payload)
	assert.Equal(t, outsider, tl.ledger.UsdcAddress(tl.ctx))

	// payments now resolve the new token, which is not deployed
	tl.whitelist(user1)
	tl.fund(user1, usdc(100))
	_, err = tl.ledger.Mint(tl.ctx, user1, user1, 1)
	assert.ErrorIs(t, err, payment.ErrUnknownToken)
	assert.Equal(t, uint64(0), tl.ledger.TotalSupply(tl.ctx))
}

func TestSetUsdcAddress_SwitchesPaymentToken(t *testing.T) {
	params := defaultParams()
	oldToken := payment.NewMemoryToken(usdcAddr)
	newAddr := common.HexToAddress("0x00000000000000000000000000000000000000d2")
	newToken := payment.NewMemoryToken(newAddr)

	l, err := ledger.New(params, payment.NewMemoryProvider(oldToken, newToken))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.AddToWhitelist(ctx, owner, user1)
	require.NoError(t, err)
	_, err = l.SetUsdcAddress(ctx, owner, newAddr)
	require.NoError(t, err)

	quote, err := l.QuoteMint(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, newToken.Mint(user1, quote.TotalPrice))
	newToken.Approve(user1, spender, quote.TotalPrice)

	_, err = l.Mint(ctx, user1, user1, 1)
	require.NoError(t, err)

	got, err := newToken.BalanceOf(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, quote.TotalPrice, got)
	got, err = oldToken.BalanceOf(ctx, owner)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
