package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-yield-ledger/internal/api/middleware"
	apierrors "github.com/feral-file/ff-yield-ledger/internal/api/shared/errors"
	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, apierrors.NewValidationError(message))
}

// respondRequestError responds to a request body that failed to parse
func respondRequestError(c *gin.Context, err error) {
	if apiErr, ok := err.(*apierrors.APIError); ok {
		c.JSON(http.StatusBadRequest, apiErr)
		return
	}
	respondValidationError(c, err.Error())
}

// respondInternalError responds with an internal server error and logs the cause
func respondInternalError(c *gin.Context, err error, message string) {
	logger.ErrorCtx(c.Request.Context(), err,
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(middleware.RequestIDHeader)))
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondLedgerError maps a failed ledger operation to its HTTP response.
// Anything that is not a ledger rejection is a failure of a dependency.
func respondLedgerError(c *gin.Context, err error, message string) {
	le, ok := domain.AsLedgerError(err)
	if !ok {
		logger.ErrorCtx(c.Request.Context(), err,
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(middleware.RequestIDHeader)))
		c.JSON(http.StatusBadGateway, apierrors.NewServiceError(message, err.Error()))
		return
	}

	status, apiErr := apierrors.NewLedgerError(le)
	if status == http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
	}
	c.JSON(status, apiErr)
}
