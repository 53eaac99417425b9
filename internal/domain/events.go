package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventType is the name of a ledger notification
type EventType string

const (
	EventAddedToWhitelist             EventType = "AddedToWhitelist"
	EventRemovedFromWhitelist         EventType = "RemovedFromWhitelist"
	EventAddToAdmin                   EventType = "AddToAdmin"
	EventRemovedFromAdmin             EventType = "RemovedFromAdmin"
	EventSetNewPrice                  EventType = "SetNewPrice"
	EventSetNewMintFees               EventType = "SetNewMintFees"
	EventSetNewTransferFees           EventType = "SetNewTransferFees"
	EventSetNewOwnerFundReceiptWallet EventType = "SetNewOwnerFundReceiptWallet"
	EventSetNewUsdcAddress            EventType = "SetNewUsdcAddress"
	EventMint                         EventType = "Mint"
	EventCustomTransferFrom           EventType = "CustomTransferFrom"
	EventSendYield                    EventType = "SendYield"

	// Base token notifications
	EventTransfer             EventType = "Transfer"
	EventApproval             EventType = "Approval"
	EventApprovalForAll       EventType = "ApprovalForAll"
	EventOwnershipTransferred EventType = "OwnershipTransferred"
)

// Event is a committed ledger notification
type Event struct {
	ID        string         `json:"id"`
	Sequence  uint64         `json:"sequence"`
	Type      EventType      `json:"type"`
	Caller    common.Address `json:"caller"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   EventPayload   `json:"payload"`
}

// EventPayload is the type-specific body of an Event
type EventPayload interface {
	EventType() EventType
}

type AddedToWhitelist struct {
	NewWhitelistedWallet common.Address `json:"newWhitelistedWallet"`
}

func (AddedToWhitelist) EventType() EventType { return EventAddedToWhitelist }

type RemovedFromWhitelist struct {
	RemovedWhitelistedWallet common.Address `json:"removedWhitelistedWallet"`
}

func (RemovedFromWhitelist) EventType() EventType { return EventRemovedFromWhitelist }

type AddToAdmin struct {
	NewAdmin common.Address `json:"newAdmin"`
}

func (AddToAdmin) EventType() EventType { return EventAddToAdmin }

type RemovedFromAdmin struct {
	OldAdmin common.Address `json:"oldAdmin"`
}

func (RemovedFromAdmin) EventType() EventType { return EventRemovedFromAdmin }

type SetNewPrice struct {
	NewPrice *uint256.Int `json:"newPrice"`
}

func (SetNewPrice) EventType() EventType { return EventSetNewPrice }

type SetNewMintFees struct {
	NewMintFees *uint256.Int `json:"newMintFees"`
}

func (SetNewMintFees) EventType() EventType { return EventSetNewMintFees }

type SetNewTransferFees struct {
	NewTransferFees *uint256.Int `json:"newTransferFees"`
}

func (SetNewTransferFees) EventType() EventType { return EventSetNewTransferFees }

type SetNewOwnerFundReceiptWallet struct {
	NewOwnerFundReceiptWallet common.Address `json:"newOwnerFundReceiptWallet"`
}

func (SetNewOwnerFundReceiptWallet) EventType() EventType { return EventSetNewOwnerFundReceiptWallet }

type SetNewUsdcAddress struct {
	NewUsdcAddress common.Address `json:"newUsdcAddress"`
}

func (SetNewUsdcAddress) EventType() EventType { return EventSetNewUsdcAddress }

// Mint is emitted once per mint call, whatever the quantity
type Mint struct {
	Minter             common.Address `json:"minter"`
	Receiver           common.Address `json:"receiver"`
	Quantity           uint64         `json:"quantity"`
	TotalPrice         *uint256.Int   `json:"totalPrice"`
	TotalMintFees      *uint256.Int   `json:"totalMintFees"`
	FirstTokenIDMinted uint64         `json:"firstTokenIdMinted"`
}

func (Mint) EventType() EventType { return EventMint }

type CustomTransferFrom struct {
	From                   common.Address `json:"from"`
	To                     common.Address `json:"to"`
	TokenID                uint64         `json:"tokenId"`
	TransferFees           *uint256.Int   `json:"transferFees"`
	OwnerFundReceiptWallet common.Address `json:"ownerFundReceiptWallet"`
}

func (CustomTransferFrom) EventType() EventType { return EventCustomTransferFrom }

// SendYield is emitted once per paid recipient of a distribution
type SendYield struct {
	To                          common.Address `json:"to"`
	TotalRentAmount             *uint256.Int   `json:"totalRentAmount"`
	CurrentYieldSendForToWallet *uint256.Int   `json:"currentYieldSendForToWallet"`
}

func (SendYield) EventType() EventType { return EventSendYield }

type Transfer struct {
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	TokenID uint64         `json:"tokenId"`
}

func (Transfer) EventType() EventType { return EventTransfer }

type Approval struct {
	Owner    common.Address `json:"owner"`
	Approved common.Address `json:"approved"`
	TokenID  uint64         `json:"tokenId"`
}

func (Approval) EventType() EventType { return EventApproval }

type ApprovalForAll struct {
	Owner    common.Address `json:"owner"`
	Operator common.Address `json:"operator"`
	Approved bool           `json:"approved"`
}

func (ApprovalForAll) EventType() EventType { return EventApprovalForAll }

type OwnershipTransferred struct {
	PreviousOwner common.Address `json:"previousOwner"`
	NewOwner      common.Address `json:"newOwner"`
}

func (OwnershipTransferred) EventType() EventType { return EventOwnershipTransferred }
