package ledger

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

func (l *Ledger) Name(ctx context.Context) string {
	return l.Settings(ctx).Name
}

func (l *Ledger) Symbol(ctx context.Context) string {
	return l.Settings(ctx).Symbol
}

// OwnerOf returns the holder of token id
func (l *Ledger) OwnerOf(ctx context.Context, id uint64) (common.Address, error) {
	var (
		owner common.Address
		err   error
	)
	l.view(ctx, func(st *state) {
		if !st.exists(id) {
			err = domain.ErrOwnerQueryForNonexistentToken
			return
		}
		owner = st.tokenOwners[id]
	})
	return owner, err
}

// BalanceOf returns how many tokens addr holds
func (l *Ledger) BalanceOf(ctx context.Context, addr common.Address) (uint64, error) {
	if addr == domain.ZeroAddress {
		return 0, domain.ErrBalanceQueryForZeroAddress
	}
	var n uint64
	l.view(ctx, func(st *state) { n = st.balances[addr] })
	return n, nil
}

// TokensOf returns the ids held by addr in ascending order
func (l *Ledger) TokensOf(ctx context.Context, addr common.Address) []uint64 {
	var ids []uint64
	l.view(ctx, func(st *state) {
		if st.balances[addr] == 0 {
			return
		}
		ids = make([]uint64, 0, st.balances[addr])
		for id, holder := range st.tokenOwners {
			if holder == addr {
				ids = append(ids, uint64(id))
			}
		}
	})
	return ids
}

// TokenURI is the base URI followed by the decimal token id, or empty when
// no base URI is set
func (l *Ledger) TokenURI(ctx context.Context, id uint64) (string, error) {
	var (
		uri string
		err error
	)
	l.view(ctx, func(st *state) {
		if !st.exists(id) {
			err = domain.ErrURIQueryForNonexistentToken
			return
		}
		if l.baseURI != "" {
			uri = l.baseURI + strconv.FormatUint(id, 10)
		}
	})
	return uri, err
}

// GetApproved returns the single-token approval of id
func (l *Ledger) GetApproved(ctx context.Context, id uint64) (common.Address, error) {
	var (
		approved common.Address
		err      error
	)
	l.view(ctx, func(st *state) {
		if !st.exists(id) {
			err = domain.ErrApprovalQueryForNonexistentToken
			return
		}
		approved = st.tokenApprovals[id]
	})
	return approved, err
}

// IsApprovedForAll reports whether operator may move every token of owner
func (l *Ledger) IsApprovedForAll(ctx context.Context, owner common.Address, operator common.Address) bool {
	var ok bool
	l.view(ctx, func(st *state) { ok = st.isApprovedForAll(owner, operator) })
	return ok
}

// Approve lets `to` move token id. The zero address clears the approval.
func (l *Ledger) Approve(ctx context.Context, caller common.Address, to common.Address, id uint64) (*Receipt, error) {
	return l.execute(ctx, "approve", caller, func(c *call) error {
		if !c.st.exists(id) {
			return domain.ErrOwnerQueryForNonexistentToken
		}
		owner := c.st.tokenOwners[id]
		if c.caller != owner && !c.st.isApprovedForAll(owner, c.caller) {
			return domain.ErrApprovalCallerNotOwnerNorApproved
		}
		if to == domain.ZeroAddress {
			delete(c.st.tokenApprovals, id)
		} else {
			c.st.tokenApprovals[id] = to
		}
		c.emit(domain.Approval{Owner: owner, Approved: to, TokenID: id})
		return nil
	})
}

// SetApprovalForAll lets or stops operator moving every token of the caller
func (l *Ledger) SetApprovalForAll(ctx context.Context, caller common.Address, operator common.Address, approved bool) (*Receipt, error) {
	return l.execute(ctx, "set_approval_for_all", caller, func(c *call) error {
		if operator == c.caller {
			return domain.ErrApproveToCaller
		}
		ops := c.st.operators[c.caller]
		if approved {
			if ops == nil {
				ops = make(map[common.Address]bool)
				c.st.operators[c.caller] = ops
			}
			ops[operator] = true
		} else if ops != nil {
			delete(ops, operator)
			if len(ops) == 0 {
				delete(c.st.operators, c.caller)
			}
		}
		c.emit(domain.ApprovalForAll{Owner: c.caller, Operator: operator, Approved: approved})
		return nil
	})
}

// checkTransfer applies the base token rules for the caller moving id
// from `from` to `to`
func (c *call) checkTransfer(from common.Address, to common.Address, id uint64) error {
	if !c.st.exists(id) {
		return domain.ErrOwnerQueryForNonexistentToken
	}
	if c.st.tokenOwners[id] != from {
		return domain.ErrTransferFromIncorrectOwner
	}
	if c.caller != from && !c.st.isApprovedForAll(from, c.caller) && c.st.tokenApprovals[id] != c.caller {
		return domain.ErrTransferCallerNotOwnerNorApproved
	}
	if to == domain.ZeroAddress {
		return domain.ErrTransferToZeroAddress
	}
	return nil
}
