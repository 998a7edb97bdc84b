package http

import (
	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		prices := v1.Group("/prices")
		{
			prices.GET("/search", handler.SearchPrices)
			prices.GET("/compare", handler.ComparePrices)
			prices.GET("/deals", handler.FindDeals)
		}

		receipts := v1.Group("/receipts")
		{
			receipts.POST("/verify", handler.VerifyReceipt)
		}

		feedback := v1.Group("/feedback")
		{
			feedback.POST("/submit", handler.SubmitFeedback)
			feedback.GET("/stats", handler.FeedbackStats)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.POST("/refresh", handler.RefreshCatalog)
			catalog.GET("/stats", handler.CatalogStats)
		}
	}

	return router
}
