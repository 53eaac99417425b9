package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
)

// Payout is the share of a distribution owed to one holder
type Payout struct {
	To      common.Address `json:"to"`
	Holding uint64         `json:"holding"`
	Amount  *uint256.Int   `json:"amount"`
}

// YieldPlan is the breakdown of a distribution at the current state
type YieldPlan struct {
	TotalAmount   *uint256.Int `json:"totalAmount"`
	Divisor       uint64       `json:"divisor"`
	PerTokenShare *uint256.Int `json:"perTokenShare"`
	Payouts       []Payout     `json:"payouts"`
}

// PlanYield previews how SendYield would split total without moving funds
func (l *Ledger) PlanYield(ctx context.Context, total *uint256.Int) (*YieldPlan, error) {
	var (
		plan *YieldPlan
		err  error
	)
	l.view(ctx, func(st *state) {
		if len(st.whitelist) == 0 {
			err = domain.ErrEmptyArray
			return
		}
		plan, err = planYield(st, l.basis, total)
	})
	return plan, err
}

// planYield pays every whitelisted holder, in whitelist order, the per-token
// share times its holding. Holders with nothing are left out.
func planYield(st *state, basis YieldBasis, total *uint256.Int) (*YieldPlan, error) {
	var held uint64
	for _, addr := range st.whitelist {
		held += st.balances[addr]
	}
	if held == 0 {
		return nil, domain.ErrNoNftMintedSoNothingToSend
	}

	divisor := st.totalSupply()
	switch basis {
	case YieldBasisMaxSupply:
		divisor = st.maxSupply
	case YieldBasisWhitelistedHoldings:
		divisor = held
	}

	share := new(uint256.Int).Div(total, uint256.NewInt(divisor))
	plan := &YieldPlan{
		TotalAmount:   new(uint256.Int).Set(total),
		Divisor:       divisor,
		PerTokenShare: share,
	}
	for _, addr := range st.whitelist {
		n := st.balances[addr]
		if n == 0 {
			continue
		}
		amount, overflow := new(uint256.Int).MulOverflow(share, uint256.NewInt(n))
		if overflow {
			return nil, domain.ErrArithmeticOverflow
		}
		plan.Payouts = append(plan.Payouts, Payout{To: addr, Holding: n, Amount: amount})
	}
	return plan, nil
}

// SendYield distributes total from the owner to the whitelisted holders.
// Owner only. Either every holder is paid or none is.
func (l *Ledger) SendYield(ctx context.Context, caller common.Address, total *uint256.Int) (*Receipt, error) {
	return l.execute(ctx, "send_yield", caller, func(c *call) error {
		if err := c.onlyOwner(); err != nil {
			return err
		}
		if len(c.st.whitelist) == 0 {
			return domain.ErrEmptyArray
		}
		if total == nil {
			total = new(uint256.Int)
		}
		if err := c.checkFunds(c.caller, total); err != nil {
			return err
		}

		plan, err := planYield(c.st, c.ledger.basis, total)
		if err != nil {
			return err
		}
		logger.DebugCtx(c.ctx, "Planned yield distribution",
			logger.Amount("total", plan.TotalAmount),
			logger.Amount("per_token", plan.PerTokenShare),
			zap.Uint64("divisor", plan.Divisor),
			zap.Int("payouts", len(plan.Payouts)))
		for _, p := range plan.Payouts {
			c.emit(domain.SendYield{
				To:                          p.To,
				TotalRentAmount:             plan.TotalAmount,
				CurrentYieldSendForToWallet: p.Amount,
			})
		}
		for _, p := range plan.Payouts {
			if err := c.pull(c.caller, p.To, p.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}
