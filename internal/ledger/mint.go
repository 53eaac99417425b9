package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// TotalSupply returns the number of tokens ever minted
func (l *Ledger) TotalSupply(ctx context.Context) uint64 {
	var n uint64
	l.view(ctx, func(st *state) { n = st.totalSupply() })
	return n
}

// MintQuote is what minting a quantity costs at the current settings
type MintQuote struct {
	TotalPrice    *uint256.Int `json:"totalPrice"`
	TotalMintFees *uint256.Int `json:"totalMintFees"`
}

// QuoteMint prices quantity units at the current price and mint fee
func (l *Ledger) QuoteMint(ctx context.Context, quantity uint64) (*MintQuote, error) {
	var (
		q   *MintQuote
		err error
	)
	l.view(ctx, func(st *state) {
		q, err = quoteMint(st, quantity)
	})
	return q, err
}

// quoteMint computes price*q + mintFees*q and mintFees*q
func quoteMint(st *state, quantity uint64) (*MintQuote, error) {
	q := uint256.NewInt(quantity)

	base, overflow := new(uint256.Int).MulOverflow(st.price, q)
	if overflow {
		return nil, domain.ErrArithmeticOverflow
	}
	fees, overflow := new(uint256.Int).MulOverflow(st.mintFees, q)
	if overflow {
		return nil, domain.ErrArithmeticOverflow
	}
	total, overflow := new(uint256.Int).AddOverflow(base, fees)
	if overflow {
		return nil, domain.ErrArithmeticOverflow
	}
	return &MintQuote{TotalPrice: total, TotalMintFees: fees}, nil
}

// Mint issues quantity new tokens to `to`, paid by the caller. Both the
// caller and `to` must be whitelisted.
func (l *Ledger) Mint(ctx context.Context, caller common.Address, to common.Address, quantity uint64) (*Receipt, error) {
	return l.execute(ctx, "mint", caller, func(c *call) error {
		st := c.st
		switch {
		case !st.whitelisted[to]:
			return domain.ErrWalletNotWhitelisted
		case !st.whitelisted[c.caller]:
			return domain.ErrCallerIsNotWhitelisted
		case to == domain.ZeroAddress:
			return domain.ErrShouldBeAValidAddress
		case quantity == 0:
			return domain.ErrShouldBeAValidQuantity
		case quantity > st.maxSupply-st.totalSupply():
			return domain.ErrMaxSupplyReachedOrTooMuchNftsAsked
		}

		quote, err := quoteMint(st, quantity)
		if err != nil {
			return err
		}
		if err := c.checkFunds(c.caller, quote.TotalPrice); err != nil {
			return err
		}

		first := st.totalSupply()
		for id := first; id < first+quantity; id++ {
			st.tokenOwners = append(st.tokenOwners, domain.ZeroAddress)
			st.assign(to, id)
			c.emit(domain.Transfer{From: domain.ZeroAddress, To: to, TokenID: id})
		}
		c.emit(domain.Mint{
			Minter:             c.caller,
			Receiver:           to,
			Quantity:           quantity,
			TotalPrice:         quote.TotalPrice,
			TotalMintFees:      quote.TotalMintFees,
			FirstTokenIDMinted: first,
		})

		return c.pull(c.caller, st.fundWallet, quote.TotalPrice)
	})
}
