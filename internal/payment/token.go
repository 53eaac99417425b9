package payment

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrUnknownToken is returned when no token contract is known at an address
	ErrUnknownToken = errors.New("unknown payment token")

	// ErrInsufficientAllowance is returned by a token when a pull exceeds the allowance
	ErrInsufficientAllowance = errors.New("transfer amount exceeds allowance")

	// ErrInsufficientBalance is returned by a token when a transfer exceeds the balance
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")

	// ErrSignerMismatch is returned when a write is requested on behalf of an
	// account whose key this process does not hold
	ErrSignerMismatch = errors.New("account is not the configured signer")

	// ErrTransactionReverted is returned when a mined transaction has a failed status
	ErrTransactionReverted = errors.New("transaction reverted")
)

// Token is the fungible payment token surface the ledger pulls value through
//
//go:generate mockgen -source=token.go -destination=../mocks/payment.go -package=mocks -mock_names=Token=MockPaymentToken,Provider=MockPaymentProvider
type Token interface {
	// BalanceOf returns the token balance of owner
	BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error)
	// Allowance returns how much spender may pull from owner
	Allowance(ctx context.Context, owner common.Address, spender common.Address) (*uint256.Int, error)
	// TransferFrom moves amount from `from` to `to` using spender's allowance
	TransferFrom(ctx context.Context, spender common.Address, from common.Address, to common.Address, amount *uint256.Int) error
	// Transfer moves amount from `from` to `to` on from's own authority
	Transfer(ctx context.Context, from common.Address, to common.Address, amount *uint256.Int) error
}

// Provider resolves the token contract deployed at an address
type Provider interface {
	Token(ctx context.Context, address common.Address) (Token, error)
}

// Snapshotter is implemented by tokens whose effects can be rolled back.
// Revision ids are only valid until reverted past or committed.
type Snapshotter interface {
	Snapshot() int
	RevertToSnapshot(revid int)
	Commit(revid int)
}
