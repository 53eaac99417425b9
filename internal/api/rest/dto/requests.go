package dto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	apierrors "github.com/feral-file/ff-yield-ledger/internal/api/shared/errors"
	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// MaxAddressesPerRequest caps batch whitelist additions
const MaxAddressesPerRequest = 500

// AddressRequest is the body of every endpoint taking a single wallet
type AddressRequest struct {
	Address string `json:"address"`
}

// Parse validates the request body
func (r *AddressRequest) Parse() (common.Address, error) {
	if r.Address == "" {
		return common.Address{}, apierrors.NewValidationError("address is required")
	}
	addr, err := domain.ParseAddress(r.Address)
	if err != nil {
		return common.Address{}, apierrors.NewValidationError(err.Error())
	}
	return addr, nil
}

// AddressesRequest is the body of POST /whitelist/batch
type AddressesRequest struct {
	Addresses []string `json:"addresses"`
}

// Parse validates the request body. An empty list is left for the ledger to reject.
func (r *AddressesRequest) Parse() ([]common.Address, error) {
	if len(r.Addresses) > MaxAddressesPerRequest {
		return nil, apierrors.NewValidationError(fmt.Sprintf("maximum %d addresses allowed", MaxAddressesPerRequest))
	}
	addrs, err := domain.ParseAddresses(r.Addresses)
	if err != nil {
		return nil, apierrors.NewValidationError(err.Error())
	}
	return addrs, nil
}

// AmountRequest is the body of the price and fee setters. Amounts are base-10
// strings in the payment token's smallest unit.
type AmountRequest struct {
	Amount string `json:"amount"`
}

// Parse validates the request body
func (r *AmountRequest) Parse() (*uint256.Int, error) {
	return parseAmount("amount", r.Amount)
}

// MintRequest is the body of POST /mint
type MintRequest struct {
	To       string `json:"to"`
	Quantity uint64 `json:"quantity"`
}

// Parse validates the request body. Quantity bounds are enforced by the ledger.
func (r *MintRequest) Parse() (common.Address, error) {
	if r.To == "" {
		return common.Address{}, apierrors.NewValidationError("to is required")
	}
	to, err := domain.ParseAddress(r.To)
	if err != nil {
		return common.Address{}, apierrors.NewValidationError(err.Error())
	}
	return to, nil
}

// TransferRequest is the body of POST /transfers
type TransferRequest struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	TokenID *uint64 `json:"token_id"`
	// Safe routes the transfer through SafeTransferFrom
	Safe bool `json:"safe"`
}

// Parse validates the request body
func (r *TransferRequest) Parse() (from, to common.Address, id uint64, err error) {
	if r.TokenID == nil {
		return from, to, 0, apierrors.NewValidationError("token_id is required")
	}
	if from, err = domain.ParseAddress(r.From); err != nil {
		return from, to, 0, apierrors.NewValidationError(fmt.Sprintf("from: %v", err))
	}
	if to, err = domain.ParseAddress(r.To); err != nil {
		return from, to, 0, apierrors.NewValidationError(fmt.Sprintf("to: %v", err))
	}
	return from, to, *r.TokenID, nil
}

// ApproveRequest is the body of POST /approvals. The zero address clears the approval.
type ApproveRequest struct {
	To      string  `json:"to"`
	TokenID *uint64 `json:"token_id"`
}

// Parse validates the request body
func (r *ApproveRequest) Parse() (common.Address, uint64, error) {
	if r.TokenID == nil {
		return common.Address{}, 0, apierrors.NewValidationError("token_id is required")
	}
	to, err := domain.ParseAddress(r.To)
	if err != nil {
		return common.Address{}, 0, apierrors.NewValidationError(err.Error())
	}
	return to, *r.TokenID, nil
}

// ApprovalForAllRequest is the body of POST /approvals/operators
type ApprovalForAllRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

// Parse validates the request body
func (r *ApprovalForAllRequest) Parse() (common.Address, error) {
	operator, err := domain.ParseAddress(r.Operator)
	if err != nil {
		return common.Address{}, apierrors.NewValidationError(err.Error())
	}
	return operator, nil
}

// YieldRequest is the body of POST /yield
type YieldRequest struct {
	TotalAmount string `json:"total_amount"`
}

// Parse validates the request body
func (r *YieldRequest) Parse() (*uint256.Int, error) {
	return parseAmount("total_amount", r.TotalAmount)
}

func parseAmount(field, value string) (*uint256.Int, error) {
	if value == "" {
		return nil, apierrors.NewValidationError(field + " is required")
	}
	amount, err := domain.ParseAmount(value)
	if err != nil {
		return nil, apierrors.NewValidationError(fmt.Sprintf("%s: %v", field, err))
	}
	return amount, nil
}
