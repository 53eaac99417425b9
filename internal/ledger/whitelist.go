package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// IsWhitelisted reports whether addr may hold, receive and earn on tokens
func (l *Ledger) IsWhitelisted(ctx context.Context, addr common.Address) bool {
	var ok bool
	l.view(ctx, func(st *state) { ok = st.whitelisted[addr] })
	return ok
}

// GetAllWhitelisted returns the whitelist in enumeration order. Removal moves
// the last entry into the freed slot, so order is only stable between removals.
func (l *Ledger) GetAllWhitelisted(ctx context.Context, caller common.Address) ([]common.Address, error) {
	var (
		list []common.Address
		err  error
	)
	l.view(ctx, func(st *state) {
		if !st.isAdminOrOwner(caller) {
			err = domain.ErrNotAdminOrOwner
			return
		}
		list = append([]common.Address{}, st.whitelist...)
	})
	return list, err
}

// AddToWhitelist whitelists addr. Owner or admin.
func (l *Ledger) AddToWhitelist(ctx context.Context, caller common.Address, addr common.Address) (*Receipt, error) {
	return l.execute(ctx, "add_to_whitelist", caller, func(c *call) error {
		if err := c.onlyAdminOrOwner(); err != nil {
			return err
		}
		if c.st.whitelisted[addr] {
			return domain.ErrAlreadyWhitelisted
		}
		c.st.addWhitelist(addr)
		c.emit(domain.AddedToWhitelist{NewWhitelistedWallet: addr})
		return nil
	})
}

// AddMultipleToWhitelist whitelists every address of addrs that is not
// whitelisted yet. Already whitelisted entries, including repeats within
// addrs, are skipped without an event.
func (l *Ledger) AddMultipleToWhitelist(ctx context.Context, caller common.Address, addrs []common.Address) (*Receipt, error) {
	return l.execute(ctx, "add_multiple_to_whitelist", caller, func(c *call) error {
		if err := c.onlyAdminOrOwner(); err != nil {
			return err
		}
		if len(addrs) == 0 {
			return domain.ErrEmptyArray
		}
		for _, addr := range addrs {
			if c.st.whitelisted[addr] {
				continue
			}
			c.st.addWhitelist(addr)
			c.emit(domain.AddedToWhitelist{NewWhitelistedWallet: addr})
		}
		return nil
	})
}

// RemoveFromWhitelist removes addr from the whitelist. Tokens it already
// holds stay with it. Owner or admin.
func (l *Ledger) RemoveFromWhitelist(ctx context.Context, caller common.Address, addr common.Address) (*Receipt, error) {
	return l.execute(ctx, "remove_from_whitelist", caller, func(c *call) error {
		if err := c.onlyAdminOrOwner(); err != nil {
			return err
		}
		if !c.st.whitelisted[addr] {
			return domain.ErrWalletNotWhitelisted
		}
		c.st.removeWhitelist(addr)
		c.emit(domain.RemovedFromWhitelist{RemovedWhitelistedWallet: addr})
		return nil
	})
}
