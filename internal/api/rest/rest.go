package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-yield-ledger/internal/api/middleware"
	"github.com/feral-file/ff-yield-ledger/internal/ratelimit"
)

// SetupRoutes configures all REST API routes. A nil limiter leaves writes unthrottled.
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig, limiter ratelimit.Limiter) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Public reads
		v1.GET("/collection", handler.GetCollection)
		v1.GET("/tokens/:id", handler.GetToken)
		v1.GET("/accounts/:address", handler.GetAccount)
		v1.GET("/accounts/:address/operators/:operator", handler.GetOperatorApproval)
		v1.GET("/mint/quote", handler.QuoteMint)
		v1.GET("/yield/plan", handler.PlanYield)

		// Event journal (operators)
		v1.GET("/events", middleware.APIKeyAuth(authCfg), handler.ListEvents)

		// Every write is attributed to the wallet in the bearer token.
		// Role checks happen in the ledger, not here.
		auth := v1.Group("", middleware.Auth(authCfg))
		if limiter != nil {
			auth.Use(middleware.RateLimit(limiter))
		}

		auth.GET("/whitelist", handler.GetWhitelist)
		auth.POST("/whitelist", handler.AddToWhitelist)
		auth.POST("/whitelist/batch", handler.AddMultipleToWhitelist)
		auth.DELETE("/whitelist/:address", handler.RemoveFromWhitelist)

		auth.POST("/admins", handler.AddAdmin)
		auth.DELETE("/admins/:address", handler.RemoveAdmin)

		auth.POST("/ownership/transfer", handler.TransferOwnership)
		auth.POST("/ownership/renounce", handler.RenounceOwnership)

		auth.PUT("/settings/price", handler.SetPrice)
		auth.PUT("/settings/mint-fees", handler.SetMintFees)
		auth.PUT("/settings/transfer-fees", handler.SetTransferFees)
		auth.PUT("/settings/fund-wallet", handler.SetOwnerFundReceiptWallet)
		auth.PUT("/settings/usdc-address", handler.SetUsdcAddress)

		auth.POST("/mint", handler.Mint)
		auth.POST("/transfers", handler.Transfer)
		auth.POST("/approvals", handler.Approve)
		auth.POST("/approvals/operators", handler.SetApprovalForAll)

		auth.POST("/yield", handler.SendYield)
	}
}
