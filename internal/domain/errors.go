package domain

import "errors"

// ErrorKind groups ledger failures by what the caller has to do to recover
type ErrorKind string

const (
	KindAuthorization ErrorKind = "authorization"
	KindValidation    ErrorKind = "validation"
	KindConflict      ErrorKind = "conflict"
	KindCapacity      ErrorKind = "capacity"
	KindPayment       ErrorKind = "payment"
	KindToken         ErrorKind = "token"
	KindInternal      ErrorKind = "internal"
)

// LedgerError is a named, terminal failure of a ledger operation.
// Code is stable and safe to expose to clients.
type LedgerError struct {
	Code string
	Kind ErrorKind
}

func (e *LedgerError) Error() string {
	return e.Code
}

func newLedgerError(code string, kind ErrorKind) *LedgerError {
	return &LedgerError{Code: code, Kind: kind}
}

// AsLedgerError unwraps err into a *LedgerError if it carries one
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// Authorization
var (
	ErrNotAdminOrOwner        = newLedgerError("NotAdminOrOwner", KindAuthorization)
	ErrNotOwner               = newLedgerError("NotOwner", KindAuthorization)
	ErrCallerIsNotWhitelisted = newLedgerError("CallerIsNotWhitelisted", KindAuthorization)
)

// Validation
var (
	ErrShouldBeAValidAddress          = newLedgerError("ShouldBeAValidAddress", KindValidation)
	ErrShouldBeAValidQuantity         = newLedgerError("ShouldBeAValidQuantity", KindValidation)
	ErrPriceMustBeGreaterThan0        = newLedgerError("PriceMustBeGreaterThan0", KindValidation)
	ErrMintFeesMustBeGreaterThan0     = newLedgerError("MintFeesMustBeGreaterThan0", KindValidation)
	ErrTransferFeesMustBeGreaterThan0 = newLedgerError("TransferFeesMustBeGreaterThan0", KindValidation)
	ErrMaxSupplyMustBeGreaterThan0    = newLedgerError("MaxSupplyMustBeGreaterThan0", KindValidation)
	ErrArithmeticOverflow             = newLedgerError("ArithmeticOverflow", KindValidation)
)

// Idempotence and no-op guards
var (
	ErrAlreadyWhitelisted                   = newLedgerError("AlreadyWhitelisted", KindConflict)
	ErrAlreadyAdmin                         = newLedgerError("AlreadyAdmin", KindConflict)
	ErrWalletNotWhitelisted                 = newLedgerError("WalletNotWhitelisted", KindConflict)
	ErrWalletNotAdmin                       = newLedgerError("WalletNotAdmin", KindConflict)
	ErrPriceIsSameAsCurrent                 = newLedgerError("PriceIsSameAsCurrent", KindConflict)
	ErrMintFeesIsSameAsCurrent              = newLedgerError("MintFeesIsSameAsCurrent", KindConflict)
	ErrTransferFeesIsSameAsCurrent          = newLedgerError("TransferFeesIsSameAsCurrent", KindConflict)
	ErrShouldBeADifferentAddressThanCurrent = newLedgerError("ShouldBeADifferentAddressThanCurrent", KindConflict)
)

// Resource and capacity
var (
	ErrMaxSupplyReachedOrTooMuchNftsAsked = newLedgerError("MaxSupplyReachedOrTooMuchNftsAsked", KindCapacity)
	ErrNoNftMintedSoNothingToSend         = newLedgerError("NoNftMintedSoNothingToSend", KindCapacity)
	ErrEmptyArray                         = newLedgerError("EmptyArray", KindCapacity)
)

// Payment
var (
	ErrNotEnoughUSDCAllowed   = newLedgerError("NotEnoughUSDCAllowed", KindPayment)
	ErrNotEnoughUSDCInBalance = newLedgerError("NotEnoughUSDCInBalance", KindPayment)
)

// Base token mechanics
var (
	ErrOwnerQueryForNonexistentToken      = newLedgerError("OwnerQueryForNonexistentToken", KindToken)
	ErrURIQueryForNonexistentToken        = newLedgerError("URIQueryForNonexistentToken", KindToken)
	ErrApprovalQueryForNonexistentToken   = newLedgerError("ApprovalQueryForNonexistentToken", KindToken)
	ErrBalanceQueryForZeroAddress         = newLedgerError("BalanceQueryForZeroAddress", KindToken)
	ErrApprovalCallerNotOwnerNorApproved  = newLedgerError("ApprovalCallerNotOwnerNorApproved", KindToken)
	ErrTransferCallerNotOwnerNorApproved  = newLedgerError("TransferCallerNotOwnerNorApproved", KindToken)
	ErrTransferFromIncorrectOwner         = newLedgerError("TransferFromIncorrectOwner", KindToken)
	ErrTransferToZeroAddress              = newLedgerError("TransferToZeroAddress", KindToken)
	ErrApproveToCaller                    = newLedgerError("ApproveToCaller", KindToken)
)

// Internal
var (
	// ErrReentrantCall is returned when a mutating operation is invoked while
	// another operation of the same ledger waits on the payment token
	ErrReentrantCall = newLedgerError("ReentrantCall", KindConflict)
)
