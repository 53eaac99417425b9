package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// Owner returns the current owner. It is the zero address once renounced.
func (l *Ledger) Owner(ctx context.Context) common.Address {
	var owner common.Address
	l.view(ctx, func(st *state) { owner = st.owner })
	return owner
}

// IsAdmin reports whether addr holds the admin role
func (l *Ledger) IsAdmin(ctx context.Context, addr common.Address) bool {
	var ok bool
	l.view(ctx, func(st *state) { ok = st.admins[addr] })
	return ok
}

// AddAdmin grants the admin role. Owner only.
func (l *Ledger) AddAdmin(ctx context.Context, caller common.Address, addr common.Address) (*Receipt, error) {
	return l.execute(ctx, "add_admin", caller, func(c *call) error {
		if err := c.onlyOwner(); err != nil {
			return err
		}
		if c.st.admins[addr] {
			return domain.ErrAlreadyAdmin
		}
		c.st.admins[addr] = true
		c.emit(domain.AddToAdmin{NewAdmin: addr})
		return nil
	})
}

// RemoveAdmin revokes the admin role. Owner only.
func (l *Ledger) RemoveAdmin(ctx context.Context, caller common.Address, addr common.Address) (*Receipt, error) {
	return l.execute(ctx, "remove_admin", caller, func(c *call) error {
		if err := c.onlyOwner(); err != nil {
			return err
		}
		if !c.st.admins[addr] {
			return domain.ErrWalletNotAdmin
		}
		delete(c.st.admins, addr)
		c.emit(domain.RemovedFromAdmin{OldAdmin: addr})
		return nil
	})
}

// TransferOwnership hands every owner-only right to newOwner
func (l *Ledger) TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) (*Receipt, error) {
	return l.execute(ctx, "transfer_ownership", caller, func(c *call) error {
		if err := c.onlyOwner(); err != nil {
			return err
		}
		if newOwner == domain.ZeroAddress {
			return domain.ErrShouldBeAValidAddress
		}
		c.setOwner(newOwner)
		return nil
	})
}

// RenounceOwnership leaves the ledger without an owner. Owner-only
// operations become permanently unavailable.
func (l *Ledger) RenounceOwnership(ctx context.Context, caller common.Address) (*Receipt, error) {
	return l.execute(ctx, "renounce_ownership", caller, func(c *call) error {
		if err := c.onlyOwner(); err != nil {
			return err
		}
		c.setOwner(domain.ZeroAddress)
		return nil
	})
}

func (c *call) setOwner(newOwner common.Address) {
	previous := c.st.owner
	c.st.owner = newOwner
	c.emit(domain.OwnershipTransferred{PreviousOwner: previous, NewOwner: newOwner})
}
