package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/payment"
)

// paymentToken resolves the configured stablecoin once per operation and
// opens a revision on it when it can be rolled back
func (c *call) paymentToken() (payment.Token, error) {
	if c.token != nil {
		return c.token, nil
	}

	done := c.callout()
	token, err := c.ledger.tokens.Token(c.ctx, c.st.paymentToken)
	done()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payment token: %w", err)
	}
	c.token = token
	if s, ok := token.(payment.Snapshotter); ok {
		c.revertible = s
		c.revision = s.Snapshot()
	}
	return token, nil
}

// checkFunds runs the allowance and balance checks of the payment sequence
func (c *call) checkFunds(payer common.Address, amount *uint256.Int) error {
	token, err := c.paymentToken()
	if err != nil {
		return err
	}

	done := c.callout()
	defer done()

	allowance, err := token.Allowance(c.ctx, payer, c.ledger.spender)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if allowance.Lt(amount) {
		return domain.ErrNotEnoughUSDCAllowed
	}

	balance, err := token.BalanceOf(c.ctx, payer)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance.Lt(amount) {
		return domain.ErrNotEnoughUSDCInBalance
	}
	return nil
}

// pull moves amount from payer to recipient on the ledger's allowance.
// Funds must have been checked first.
func (c *call) pull(payer common.Address, recipient common.Address, amount *uint256.Int) error {
	token, err := c.paymentToken()
	if err != nil {
		return err
	}
	done := c.callout()
	defer done()

	if err := token.TransferFrom(c.ctx, c.ledger.spender, payer, recipient, amount); err != nil {
		return fmt.Errorf("failed to pull %s from %s: %w", amount.Dec(), payer.Hex(), err)
	}
	c.pulled = true
	return nil
}

func (c *call) revertPayments() {
	if c.revertible != nil {
		c.revertible.RevertToSnapshot(c.revision)
		c.revertible = nil
		return
	}
	if c.pulled {
		logger.WarnCtx(c.ctx, "Payment token cannot roll back, settled transfers of the failed operation remain",
			logger.Address("token", c.st.paymentToken))
	}
}

func (c *call) commitPayments() {
	if c.revertible != nil {
		c.revertible.Commit(c.revision)
		c.revertible = nil
	}
}
