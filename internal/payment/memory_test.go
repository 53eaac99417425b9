package payment_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-yield-ledger/internal/payment"
)

var (
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	spender   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func balanceOf(t *testing.T, token payment.Token, addr common.Address) uint64 {
	b, err := token.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b.Uint64()
}

func allowanceOf(t *testing.T, token payment.Token, owner, spender common.Address) uint64 {
	a, err := token.Allowance(context.Background(), owner, spender)
	require.NoError(t, err)
	return a.Uint64()
}

func TestMemoryToken_TransferFrom(t *testing.T) {
	ctx := context.Background()
	token := payment.NewMemoryToken(tokenAddr)
	require.NoError(t, token.Mint(alice, uint256.NewInt(100)))
	token.Approve(alice, spender, uint256.NewInt(60))

	err := token.TransferFrom(ctx, spender, alice, bob, uint256.NewInt(70))
	assert.ErrorIs(t, err, payment.ErrInsufficientAllowance)

	require.NoError(t, token.TransferFrom(ctx, spender, alice, bob, uint256.NewInt(40)))
	assert.Equal(t, uint64(60), balanceOf(t, token, alice))
	assert.Equal(t, uint64(40), balanceOf(t, token, bob))
	assert.Equal(t, uint64(20), allowanceOf(t, token, alice, spender))

	token.Approve(alice, spender, uint256.NewInt(1000))
	err = token.TransferFrom(ctx, spender, alice, bob, uint256.NewInt(61))
	assert.ErrorIs(t, err, payment.ErrInsufficientBalance)
	assert.Equal(t, uint64(1000), allowanceOf(t, token, alice, spender), "failed pulls keep the allowance")

	err = token.TransferFrom(ctx, spender, alice, common.Address{}, uint256.NewInt(1))
	assert.Error(t, err)
}

func TestMemoryToken_Transfer(t *testing.T) {
	ctx := context.Background()
	token := payment.NewMemoryToken(tokenAddr)
	require.NoError(t, token.Mint(alice, uint256.NewInt(10)))

	require.NoError(t, token.Transfer(ctx, alice, bob, uint256.NewInt(4)))
	assert.Equal(t, uint64(6), balanceOf(t, token, alice))
	assert.Equal(t, uint64(4), balanceOf(t, token, bob))

	// self transfers only check the balance
	require.NoError(t, token.Transfer(ctx, alice, alice, uint256.NewInt(6)))
	assert.Equal(t, uint64(6), balanceOf(t, token, alice))
	assert.ErrorIs(t, token.Transfer(ctx, alice, alice, uint256.NewInt(7)), payment.ErrInsufficientBalance)
}

func TestMemoryToken_Seed(t *testing.T) {
	token := payment.NewMemoryToken(tokenAddr)
	err := token.Seed(spender, []payment.Account{
		{Address: alice, Balance: uint256.NewInt(500), Allowance: uint256.NewInt(200)},
		{Address: bob, Balance: uint256.NewInt(7)},
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(500), balanceOf(t, token, alice))
	assert.Equal(t, uint64(200), allowanceOf(t, token, alice, spender))
	assert.Equal(t, uint64(7), balanceOf(t, token, bob))
	assert.Zero(t, allowanceOf(t, token, bob, spender))

	// balances accumulate, allowances are replaced
	require.NoError(t, token.Seed(spender, []payment.Account{
		{Address: alice, Balance: uint256.NewInt(1), Allowance: uint256.NewInt(50)},
	}))
	assert.Equal(t, uint64(501), balanceOf(t, token, alice))
	assert.Equal(t, uint64(50), allowanceOf(t, token, alice, spender))

	full := new(uint256.Int).SetAllOne()
	assert.Error(t, token.Seed(spender, []payment.Account{{Address: alice, Balance: full}}))
}

func TestMemoryToken_MintOverflow(t *testing.T) {
	token := payment.NewMemoryToken(tokenAddr)
	require.NoError(t, token.Mint(alice, new(uint256.Int).SetAllOne()))
	assert.Error(t, token.Mint(alice, uint256.NewInt(1)))
}

func TestMemoryToken_Revisions(t *testing.T) {
	ctx := context.Background()
	token := payment.NewMemoryToken(tokenAddr)
	require.NoError(t, token.Mint(alice, uint256.NewInt(100)))
	token.Approve(alice, spender, uint256.NewInt(100))

	outer := token.Snapshot()
	require.NoError(t, token.TransferFrom(ctx, spender, alice, bob, uint256.NewInt(10)))

	inner := token.Snapshot()
	require.NoError(t, token.TransferFrom(ctx, spender, alice, bob, uint256.NewInt(20)))
	token.RevertToSnapshot(inner)
	assert.Equal(t, uint64(90), balanceOf(t, token, alice))
	assert.Equal(t, uint64(10), balanceOf(t, token, bob))
	assert.Equal(t, uint64(90), allowanceOf(t, token, alice, spender))

	token.RevertToSnapshot(outer)
	assert.Equal(t, uint64(100), balanceOf(t, token, alice))
	assert.Equal(t, uint64(0), balanceOf(t, token, bob))
	assert.Equal(t, uint64(100), allowanceOf(t, token, alice, spender))

	// a reverted revision cannot be reverted again
	assert.Panics(t, func() { token.RevertToSnapshot(outer) })
}

func TestMemoryToken_Commit(t *testing.T) {
	ctx := context.Background()
	token := payment.NewMemoryToken(tokenAddr)
	require.NoError(t, token.Mint(alice, uint256.NewInt(100)))

	rev := token.Snapshot()
	require.NoError(t, token.Transfer(ctx, alice, bob, uint256.NewInt(30)))
	token.Commit(rev)

	assert.Equal(t, uint64(70), balanceOf(t, token, alice))
	assert.Equal(t, uint64(30), balanceOf(t, token, bob))
	assert.Panics(t, func() { token.RevertToSnapshot(rev) })

	// committing twice is harmless
	token.Commit(rev)
}

func TestMemoryToken_TransferHook(t *testing.T) {
	ctx := context.Background()
	token := payment.NewMemoryToken(tokenAddr)
	require.NoError(t, token.Mint(alice, uint256.NewInt(5)))

	var seen []uint64
	token.SetTransferHook(func(ctx context.Context, from, to common.Address, amount *uint256.Int) {
		// the hook runs unlocked and may read the token
		seen = append(seen, balanceOf(t, token, to))
	})

	require.NoError(t, token.Transfer(ctx, alice, bob, uint256.NewInt(2)))
	assert.ErrorIs(t, token.Transfer(ctx, alice, bob, uint256.NewInt(9)), payment.ErrInsufficientBalance)
	assert.Equal(t, []uint64{2}, seen, "the hook only runs for successful transfers")
}

func TestMemoryProvider(t *testing.T) {
	token := payment.NewMemoryToken(tokenAddr)
	provider := payment.NewMemoryProvider(token)

	got, err := provider.Token(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Same(t, token, got)

	_, err = provider.Token(context.Background(), alice)
	assert.ErrorIs(t, err, payment.ErrUnknownToken)

	other := payment.NewMemoryToken(alice)
	provider.Register(other)
	got, err = provider.Token(context.Background(), alice)
	require.NoError(t, err)
	assert.Same(t, other, got)
}
