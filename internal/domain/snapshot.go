package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Snapshot is the full persisted state of a ledger after a committed operation.
// TokenOwners is indexed by token id.
type Snapshot struct {
	Name                   string                              `json:"name"`
	Symbol                 string                              `json:"symbol"`
	BaseURI                string                              `json:"baseUri"`
	Owner                  common.Address                      `json:"owner"`
	OwnerFundReceiptWallet common.Address                      `json:"ownerFundReceiptWallet"`
	UsdcAddress            common.Address                      `json:"usdcAddress"`
	Price                  *uint256.Int                        `json:"price"`
	MintFees               *uint256.Int                        `json:"mintFees"`
	TransferFees           *uint256.Int                        `json:"transferFees"`
	MaxSupply              uint64                              `json:"maxSupply"`
	Admins                 []common.Address                    `json:"admins"`
	Whitelist              []common.Address                    `json:"whitelist"`
	TokenOwners            []common.Address                    `json:"tokenOwners"`
	TokenApprovals         map[uint64]common.Address           `json:"tokenApprovals,omitempty"`
	Operators              map[common.Address][]common.Address `json:"operators,omitempty"`
	Sequence               uint64                              `json:"sequence"`
}
