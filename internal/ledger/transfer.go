package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// TransferFrom moves token id from `from` to `to`. The destination must be
// whitelisted and the caller pays the transfer fee to the fund wallet. The
// caller must own the token or be approved for it.
func (l *Ledger) TransferFrom(ctx context.Context, caller common.Address, from common.Address, to common.Address, id uint64) (*Receipt, error) {
	return l.execute(ctx, "transfer_from", caller, func(c *call) error {
		return c.gatedTransfer(from, to, id)
	})
}

// SafeTransferFrom goes through the same gate as TransferFrom. Holders are
// plain accounts here, so there is no receiver hook to call.
func (l *Ledger) SafeTransferFrom(ctx context.Context, caller common.Address, from common.Address, to common.Address, id uint64) (*Receipt, error) {
	return l.execute(ctx, "safe_transfer_from", caller, func(c *call) error {
		return c.gatedTransfer(from, to, id)
	})
}

// gatedTransfer reports failures in gate order: destination whitelist, fee
// funds, then base ownership rules. Local effects are applied before the fee
// is pulled.
func (c *call) gatedTransfer(from common.Address, to common.Address, id uint64) error {
	if !c.st.whitelisted[to] {
		return domain.ErrWalletNotWhitelisted
	}

	fee := new(uint256.Int).Set(c.st.transferFees)
	if err := c.checkFunds(c.caller, fee); err != nil {
		return err
	}
	if err := c.checkTransfer(from, to, id); err != nil {
		return err
	}

	c.st.assign(to, id)
	c.emit(domain.Transfer{From: from, To: to, TokenID: id})
	c.emit(domain.CustomTransferFrom{
		From:                   from,
		To:                     to,
		TokenID:                id,
		TransferFees:           fee,
		OwnerFundReceiptWallet: c.st.fundWallet,
	})

	return c.pull(c.caller, c.st.fundWallet, fee)
}
