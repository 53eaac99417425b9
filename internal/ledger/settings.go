package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// Settings is a read-only copy of the configuration and supply counters
type Settings struct {
	Name                   string         `json:"name"`
	Symbol                 string         `json:"symbol"`
	BaseURI                string         `json:"baseUri"`
	Owner                  common.Address `json:"owner"`
	OwnerFundReceiptWallet common.Address `json:"ownerFundReceiptWallet"`
	UsdcAddress            common.Address `json:"usdcAddress"`
	Spender                common.Address `json:"spender"`
	Price                  *uint256.Int   `json:"price"`
	MintFees               *uint256.Int   `json:"mintFees"`
	TransferFees           *uint256.Int   `json:"transferFees"`
	MaxSupply              uint64         `json:"maxSupply"`
	TotalSupply            uint64         `json:"totalSupply"`
	YieldBasis             YieldBasis     `json:"yieldBasis"`
}

// Settings returns the current configuration
func (l *Ledger) Settings(ctx context.Context) Settings {
	var s Settings
	l.view(ctx, func(st *state) {
		s = Settings{
			Name:                   l.name,
			Symbol:                 l.symbol,
			BaseURI:                l.baseURI,
			Owner:                  st.owner,
			OwnerFundReceiptWallet: st.fundWallet,
			UsdcAddress:            st.paymentToken,
			Spender:                l.spender,
			Price:                  new(uint256.Int).Set(st.price),
			MintFees:               new(uint256.Int).Set(st.mintFees),
			TransferFees:           new(uint256.Int).Set(st.transferFees),
			MaxSupply:              st.maxSupply,
			TotalSupply:            st.totalSupply(),
			YieldBasis:             l.basis,
		}
	})
	return s
}

func (l *Ledger) Price(ctx context.Context) *uint256.Int {
	return l.Settings(ctx).Price
}

func (l *Ledger) MintFees(ctx context.Context) *uint256.Int {
	return l.Settings(ctx).MintFees
}

func (l *Ledger) TransferFees(ctx context.Context) *uint256.Int {
	return l.Settings(ctx).TransferFees
}

func (l *Ledger) MaxSupply(ctx context.Context) uint64 {
	return l.Settings(ctx).MaxSupply
}

func (l *Ledger) OwnerFundReceiptWallet(ctx context.Context) common.Address {
	return l.Settings(ctx).OwnerFundReceiptWallet
}

// UsdcAddress returns the address of the payment token
func (l *Ledger) UsdcAddress(ctx context.Context) common.Address {
	return l.Settings(ctx).UsdcAddress
}

// SetPrice changes the unit price. Owner or admin.
func (l *Ledger) SetPrice(ctx context.Context, caller common.Address, price *uint256.Int) (*Receipt, error) {
	return l.execute(ctx, "set_price", caller, func(c *call) error {
		if err := c.onlyAdminOrOwner(); err != nil {
			return err
		}
		if err := setAmount(c.st.price, price, domain.ErrPriceMustBeGreaterThan0, domain.ErrPriceIsSameAsCurrent); err != nil {
			return err
		}
		c.emit(domain.SetNewPrice{NewPrice: new(uint256.Int).Set(price)})
		return nil
	})
}

// SetMintFees changes the per-unit mint fee. Owner or admin.
func (l *Ledger) SetMintFees(ctx context.Context, caller common.Address, fees *uint256.Int) (*Receipt, error) {
	return l.execute(ctx, "set_mint_fees", caller, func(c *call) error {
		if err := c.onlyAdminOrOwner(); err != nil {
			return err
		}
		if err := setAmount(c.st.mintFees, fees, domain.ErrMintFeesMustBeGreaterThan0, domain.ErrMintFeesIsSameAsCurrent); err != nil {
			return err
		}
		c.emit(domain.SetNewMintFees{NewMintFees: new(uint256.Int).Set(fees)})
		return nil
	})
}

// SetTransferFees changes the flat fee charged per transfer. Owner or admin.
func (l *Ledger) SetTransferFees(ctx context.Context, caller common.Address, fees *uint256.Int) (*Receipt, error) {
	return l.execute(ctx, "set_transfer_fees", caller, func(c *call) error {
		if err := c.onlyAdminOrOwner(); err != nil {
			return err
		}
		if err := setAmount(c.st.transferFees, fees, domain.ErrTransferFeesMustBeGreaterThan0, domain.ErrTransferFeesIsSameAsCurrent); err != nil {
			return err
		}
		c.emit(domain.SetNewTransferFees{NewTransferFees: new(uint256.Int).Set(fees)})
		return nil
	})
}

// SetOwnerFundReceiptWallet changes where payments are sent. Owner only.
func (l *Ledger) SetOwnerFundReceiptWallet(ctx context.Context, caller common.Address, wallet common.Address) (*Receipt, error) {
	return l.execute(ctx, "set_owner_fund_receipt_wallet", caller, func(c *call) error {
		if err := c.onlyOwner(); err != nil {
			return err
		}
		if err := setAddress(&c.st.fundWallet, wallet); err != nil {
			return err
		}
		c.emit(domain.SetNewOwnerFundReceiptWallet{NewOwnerFundReceiptWallet: wallet})
		return nil
	})
}

// SetUsdcAddress switches the payment token. Owner only.
func (l *Ledger) SetUsdcAddress(ctx context.Context, caller common.Address, token common.Address) (*Receipt, error) {
	return l.execute(ctx, "set_usdc_address", caller, func(c *call) error {
		if err := c.onlyOwner(); err != nil {
			return err
		}
		if err := setAddress(&c.st.paymentToken, token); err != nil {
			return err
		}
		c.emit(domain.SetNewUsdcAddress{NewUsdcAddress: token})
		return nil
	})
}

// setAmount validates then stores next into current
func setAmount(current *uint256.Int, next *uint256.Int, errZero error, errSame error) error {
	if next == nil || next.IsZero() {
		return errZero
	}
	if current.Eq(next) {
		return errSame
	}
	current.Set(next)
	return nil
}

func setAddress(current *common.Address, next common.Address) error {
	if next == domain.ZeroAddress {
		return domain.ErrShouldBeAValidAddress
	}
	if *current == next {
		return domain.ErrShouldBeADifferentAddressThanCurrent
	}
	*current = next
	return nil
}
