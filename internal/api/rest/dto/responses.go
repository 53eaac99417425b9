package dto

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/store/schema"
)

// ReceiptResponse lists the events a committed operation emitted
type ReceiptResponse struct {
	Events []domain.Event `json:"events"`
}

// TokenResponse represents one minted token
type TokenResponse struct {
	TokenID  uint64         `json:"token_id"`
	Owner    common.Address `json:"owner"`
	Approved common.Address `json:"approved"`
	URI      string         `json:"uri"`
}

// AccountResponse represents the ledger's view of a wallet
type AccountResponse struct {
	Address       common.Address `json:"address"`
	IsAdmin       bool           `json:"is_admin"`
	IsWhitelisted bool           `json:"is_whitelisted"`
	Balance       uint64         `json:"balance"`
	Tokens        []uint64       `json:"tokens"`
}

// OperatorApprovalResponse answers IsApprovedForAll
type OperatorApprovalResponse struct {
	Owner    common.Address `json:"owner"`
	Operator common.Address `json:"operator"`
	Approved bool           `json:"approved"`
}

// WhitelistResponse is the enumeration of whitelisted wallets
type WhitelistResponse struct {
	Addresses []common.Address `json:"addresses"`
	Total     int              `json:"total"`
}

// EventResponse represents a journaled ledger event
type EventResponse struct {
	Sequence    uint64          `json:"sequence"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Caller      string          `json:"caller"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// EventListResponse is a page of journaled events
type EventListResponse struct {
	Events []EventResponse `json:"items"`
	Total  uint64          `json:"total"`
	// NextAfter is the cursor for the following page, absent on the last one
	NextAfter *uint64 `json:"next_after,omitempty"`
}

// MapEventToDTO converts a journal row into its response
func MapEventToDTO(e *schema.LedgerEvent) EventResponse {
	return EventResponse{
		Sequence:    e.Sequence,
		ID:          e.EventID,
		Type:        e.EventType,
		Caller:      e.Caller,
		Payload:     json.RawMessage(e.Payload),
		OccurredAt:  e.OccurredAt,
		PublishedAt: e.PublishedAt,
	}
}
