package rest

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/store"
)

const MAX_PAGE_SIZE = store.MaxEventLimit

// ListEventsQueryParams holds query parameters for GET /events
type ListEventsQueryParams struct {
	// Filters
	Types       []string   `form:"type"`
	Caller      string     `form:"caller"`
	Since       *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Unpublished bool       `form:"unpublished"`

	// Pagination
	After uint64 `form:"after,default=0"`
	Limit int    `form:"limit,default=100"`
}

// ParseListEventsQuery parses query parameters for GET /events
func ParseListEventsQuery(c *gin.Context) (*ListEventsQueryParams, error) {
	var params ListEventsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if params.Caller != "" {
		caller, err := domain.ParseAddress(params.Caller)
		if err != nil {
			return nil, err
		}
		params.Caller = caller.Hex()
	}

	// Cap limit
	if params.Limit <= 0 {
		params.Limit = store.DefaultEventLimit
	}
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}

// Filter converts the query into a store filter
func (p *ListEventsQueryParams) Filter() store.EventQueryFilter {
	filter := store.EventQueryFilter{
		After:       p.After,
		Types:       p.Types,
		Since:       p.Since,
		Unpublished: p.Unpublished,
		Limit:       p.Limit,
	}
	if p.Caller != "" {
		caller := p.Caller
		filter.Caller = &caller
	}
	return filter
}

// QuoteMintQueryParams holds query parameters for GET /mint/quote
type QuoteMintQueryParams struct {
	Quantity uint64 `form:"quantity"`
}

// ParseQuoteMintQuery parses query parameters for GET /mint/quote
func ParseQuoteMintQuery(c *gin.Context) (*QuoteMintQueryParams, error) {
	var params QuoteMintQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	if params.Quantity == 0 {
		return nil, errors.New("quantity must be greater than 0")
	}
	return &params, nil
}
