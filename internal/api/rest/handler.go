package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"github.com/feral-file/ff-yield-ledger/internal/api/middleware"
	"github.com/feral-file/ff-yield-ledger/internal/api/rest/dto"
	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/ledger"
	"github.com/feral-file/ff-yield-ledger/internal/store"
	"github.com/feral-file/ff-yield-ledger/internal/store/schema"
)

// EventReader is the journal query the events endpoint needs
type EventReader interface {
	ListEvents(ctx context.Context, filter store.EventQueryFilter) ([]*schema.LedgerEvent, uint64, error)
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// GetCollection returns the configuration and supply counters
	// GET /api/v1/collection
	GetCollection(c *gin.Context)

	// GetToken returns the owner, approval and URI of a token
	// GET /api/v1/tokens/:id
	GetToken(c *gin.Context)

	// GetAccount returns roles, balance and tokens of a wallet
	// GET /api/v1/accounts/:address
	GetAccount(c *gin.Context)

	// GetOperatorApproval answers IsApprovedForAll
	// GET /api/v1/accounts/:address/operators/:operator
	GetOperatorApproval(c *gin.Context)

	// QuoteMint prices a mint at the current settings
	// GET /api/v1/mint/quote?quantity=<n>
	QuoteMint(c *gin.Context)

	// PlanYield previews a distribution
	// GET /api/v1/yield/plan?total_amount=<amount>
	PlanYield(c *gin.Context)

	// ListEvents pages through the event journal
	// GET /api/v1/events?after=<sequence>&type=<type>&caller=<address>&since=<RFC3339>&unpublished=<bool>&limit=<n>
	ListEvents(c *gin.Context)

	// Owner or admin operations
	GetWhitelist(c *gin.Context)
	AddToWhitelist(c *gin.Context)
	AddMultipleToWhitelist(c *gin.Context)
	RemoveFromWhitelist(c *gin.Context)
	SetPrice(c *gin.Context)
	SetMintFees(c *gin.Context)
	SetTransferFees(c *gin.Context)

	// Owner operations
	AddAdmin(c *gin.Context)
	RemoveAdmin(c *gin.Context)
	SetOwnerFundReceiptWallet(c *gin.Context)
	SetUsdcAddress(c *gin.Context)
	TransferOwnership(c *gin.Context)
	RenounceOwnership(c *gin.Context)
	SendYield(c *gin.Context)

	// Holder operations
	Mint(c *gin.Context)
	Transfer(c *gin.Context)
	Approve(c *gin.Context)
	SetApprovalForAll(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	ledger *ledger.Ledger
	events EventReader
}

// NewHandler creates a new REST API handler
func NewHandler(l *ledger.Ledger, events EventReader) Handler {
	return &handler{
		ledger: l,
		events: events,
	}
}

// caller returns the authenticated wallet. Routes calling it sit behind middleware.Auth.
func caller(c *gin.Context) common.Address {
	addr, _ := middleware.CallerFromContext(c)
	return addr
}

// addressParam parses a wallet from the named path parameter
func addressParam(c *gin.Context, name string) (common.Address, bool) {
	addr, err := domain.ParseAddress(c.Param(name))
	if err != nil {
		respondBadRequest(c, fmt.Sprintf("Invalid %s", name), err.Error())
		return common.Address{}, false
	}
	return addr, true
}

func respondReceipt(c *gin.Context, receipt *ledger.Receipt) {
	c.JSON(http.StatusOK, dto.ReceiptResponse{Events: receipt.Events})
}

func (h *handler) GetCollection(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Settings(c.Request.Context()))
}

func (h *handler) GetToken(c *gin.Context) {
	id, err := domain.ParseTokenID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid token id", err.Error())
		return
	}

	ctx := c.Request.Context()
	owner, err := h.ledger.OwnerOf(ctx, id)
	if err != nil {
		respondLedgerError(c, err, "Failed to get token")
		return
	}
	approved, err := h.ledger.GetApproved(ctx, id)
	if err != nil {
		respondLedgerError(c, err, "Failed to get token")
		return
	}
	uri, err := h.ledger.TokenURI(ctx, id)
	if err != nil {
		respondLedgerError(c, err, "Failed to get token")
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		TokenID:  id,
		Owner:    owner,
		Approved: approved,
		URI:      uri,
	})
}

func (h *handler) GetAccount(c *gin.Context) {
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	balance, err := h.ledger.BalanceOf(ctx, addr)
	if err != nil {
		respondLedgerError(c, err, "Failed to get account")
		return
	}

	c.JSON(http.StatusOK, dto.AccountResponse{
		Address:       addr,
		IsAdmin:       h.ledger.IsAdmin(ctx, addr),
		IsWhitelisted: h.ledger.IsWhitelisted(ctx, addr),
		Balance:       balance,
		Tokens:        h.ledger.TokensOf(ctx, addr),
	})
}

func (h *handler) GetOperatorApproval(c *gin.Context) {
	owner, ok := addressParam(c, "address")
	if !ok {
		return
	}
	operator, ok := addressParam(c, "operator")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.OperatorApprovalResponse{
		Owner:    owner,
		Operator: operator,
		Approved: h.ledger.IsApprovedForAll(c.Request.Context(), owner, operator),
	})
}

func (h *handler) QuoteMint(c *gin.Context) {
	params, err := ParseQuoteMintQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	quote, err := h.ledger.QuoteMint(c.Request.Context(), params.Quantity)
	if err != nil {
		respondLedgerError(c, err, "Failed to quote mint")
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *handler) PlanYield(c *gin.Context) {
	total, err := (&dto.YieldRequest{TotalAmount: c.Query("total_amount")}).Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	plan, err := h.ledger.PlanYield(c.Request.Context(), total)
	if err != nil {
		respondLedgerError(c, err, "Failed to plan yield")
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *handler) ListEvents(c *gin.Context) {
	params, err := ParseListEventsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	rows, total, err := h.events.ListEvents(c.Request.Context(), params.Filter())
	if err != nil {
		respondInternalError(c, err, "Failed to list events")
		return
	}

	resp := dto.EventListResponse{
		Events: make([]dto.EventResponse, 0, len(rows)),
		Total:  total,
	}
	for _, row := range rows {
		resp.Events = append(resp.Events, dto.MapEventToDTO(row))
	}
	if n := len(rows); n > 0 && uint64(n) < total {
		next := rows[n-1].Sequence
		resp.NextAfter = &next
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetWhitelist(c *gin.Context) {
	addrs, err := h.ledger.GetAllWhitelisted(c.Request.Context(), caller(c))
	if err != nil {
		respondLedgerError(c, err, "Failed to get whitelist")
		return
	}
	c.JSON(http.StatusOK, dto.WhitelistResponse{Addresses: addrs, Total: len(addrs)})
}

// addressOp runs a ledger write that takes one wallet from the request body
func (h *handler) addressOp(c *gin.Context, message string, op func(ctx context.Context, caller, addr common.Address) (*ledger.Receipt, error)) {
	var req dto.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	addr, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	receipt, err := op(c.Request.Context(), caller(c), addr)
	if err != nil {
		respondLedgerError(c, err, message)
		return
	}
	respondReceipt(c, receipt)
}

// addressParamOp runs a ledger write that takes one wallet from the path
func (h *handler) addressParamOp(c *gin.Context, message string, op func(ctx context.Context, caller, addr common.Address) (*ledger.Receipt, error)) {
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}

	receipt, err := op(c.Request.Context(), caller(c), addr)
	if err != nil {
		respondLedgerError(c, err, message)
		return
	}
	respondReceipt(c, receipt)
}

// amountOp runs a ledger write that takes one amount from the request body
func (h *handler) amountOp(c *gin.Context, message string, op func(ctx context.Context, caller common.Address, amount *uint256.Int) (*ledger.Receipt, error)) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	amount, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	receipt, err := op(c.Request.Context(), caller(c), amount)
	if err != nil {
		respondLedgerError(c, err, message)
		return
	}
	respondReceipt(c, receipt)
}

func (h *handler) AddToWhitelist(c *gin.Context) {
	h.addressOp(c, "Failed to add to whitelist", h.ledger.AddToWhitelist)
}

func (h *handler) AddMultipleToWhitelist(c *gin.Context) {
	var req dto.AddressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	addrs, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	receipt, err := h.ledger.AddMultipleToWhitelist(c.Request.Context(), caller(c), addrs)
	if err != nil {
		respondLedgerError(c, err, "Failed to add to whitelist")
		return
	}
	respondReceipt(c, receipt)
}

func (h *handler) RemoveFromWhitelist(c *gin.Context) {
	h.addressParamOp(c, "Failed to remove from whitelist", h.ledger.RemoveFromWhitelist)
}

func (h *handler) SetPrice(c *gin.Context) {
	h.amountOp(c, "Failed to set price", h.ledger.SetPrice)
}

func (h *handler) SetMintFees(c *gin.Context) {
	h.amountOp(c, "Failed to set mint fees", h.ledger.SetMintFees)
}

func (h *handler) SetTransferFees(c *gin.Context) {
	h.amountOp(c, "Failed to set transfer fees", h.ledger.SetTransferFees)
}

func (h *handler) AddAdmin(c *gin.Context) {
	h.addressOp(c, "Failed to add admin", h.ledger.AddAdmin)
}

func (h *handler) RemoveAdmin(c *gin.Context) {
	h.addressParamOp(c, "Failed to remove admin", h.ledger.RemoveAdmin)
}

func (h *handler) SetOwnerFundReceiptWallet(c *gin.Context) {
	h.addressOp(c, "Failed to set fund receipt wallet", h.ledger.SetOwnerFundReceiptWallet)
}

func (h *handler) SetUsdcAddress(c *gin.Context) {
	h.addressOp(c, "Failed to set payment token", h.ledger.SetUsdcAddress)
}

func (h *handler) TransferOwnership(c *gin.Context) {
	h.addressOp(c, "Failed to transfer ownership", h.ledger.TransferOwnership)
}

func (h *handler) RenounceOwnership(c *gin.Context) {
	receipt, err := h.ledger.RenounceOwnership(c.Request.Context(), caller(c))
	if err != nil {
		respondLedgerError(c, err, "Failed to renounce ownership")
		return
	}
	respondReceipt(c, receipt)
}

func (h *handler) SendYield(c *gin.Context) {
	var req dto.YieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	total, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	receipt, err := h.ledger.SendYield(c.Request.Context(), caller(c), total)
	if err != nil {
		respondLedgerError(c, err, "Failed to send yield")
		return
	}
	respondReceipt(c, receipt)
}

func (h *handler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	to, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	receipt, err := h.ledger.Mint(c.Request.Context(), caller(c), to, req.Quantity)
	if err != nil {
		respondLedgerError(c, err, "Failed to mint")
		return
	}
	respondReceipt(c, receipt)
}

func (h *handler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	from, to, id, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	transfer := h.ledger.TransferFrom
	if req.Safe {
		transfer = h.ledger.SafeTransferFrom
	}
	receipt, err := transfer(c.Request.Context(), caller(c), from, to, id)
	if err != nil {
		respondLedgerError(c, err, "Failed to transfer token")
		return
	}
	respondReceipt(c, receipt)
}

func (h *handler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	to, id, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	receipt, err := h.ledger.Approve(c.Request.Context(), caller(c), to, id)
	if err != nil {
		respondLedgerError(c, err, "Failed to approve")
		return
	}
	respondReceipt(c, receipt)
}

func (h *handler) SetApprovalForAll(c *gin.Context) {
	var req dto.ApprovalForAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	operator, err := req.Parse()
	if err != nil {
		respondRequestError(c, err)
		return
	}

	receipt, err := h.ledger.SetApprovalForAll(c.Request.Context(), caller(c), operator, req.Approved)
	if err != nil {
		respondLedgerError(c, err, "Failed to set operator approval")
		return
	}
	respondReceipt(c, receipt)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"service":      "ff-yield-ledger-api",
		"total_supply": h.ledger.TotalSupply(c.Request.Context()),
	})
}
