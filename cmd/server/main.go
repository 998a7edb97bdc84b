package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/catalog"
	"github.com/pricelens/backend/internal/infrastructure/community"
	"github.com/pricelens/backend/internal/infrastructure/feedback"
	"github.com/pricelens/backend/internal/infrastructure/vision"
	"github.com/pricelens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PriceLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	debug := cfg.Server.Environment == "development" || cfg.Matching.EnableDebugLogging

	// Initialize infrastructure dependencies
	feedClient := catalog.NewClient(cfg.Catalog.FeedURL)
	catalogStore := catalog.NewStore(feedClient, catalog.StoreConfig{
		CacheFile: cfg.Catalog.CacheFile,
		MaxAge:    cfg.Catalog.MaxAge,
	})
	log.Printf("Catalog: cache=%s, max age=%s", cfg.Catalog.CacheFile, cfg.Catalog.MaxAge)

	ledger := feedback.NewLedger(feedback.LedgerConfig{
		Path: cfg.Feedback.LedgerFile,
	})
	log.Printf("Feedback ledger: %s", cfg.Feedback.LedgerFile)

	communityClient := community.NewClient(community.Config{
		APIURL:        cfg.Community.APIURL,
		ContributorID: cfg.Community.ContributorID,
		AllowedHosts:  cfg.Community.AllowedHosts,
		Timeout:       cfg.Community.Timeout,
	})
	log.Printf("Community API: %s (contributor: %s)", cfg.Community.APIURL, cfg.Community.ContributorID)

	var extractor domain.ReceiptExtractor
	if cfg.Vision.Enabled {
		visionClient, err := vision.NewClient(vision.Config{
			OllamaURL: cfg.Vision.OllamaURL,
			Model:     cfg.Vision.Model,
			Timeout:   cfg.Vision.Timeout,
		})
		if err != nil {
			log.Fatalf("Failed to initialize vision client: %v", err)
		}
		if debug {
			visionClient.SetDebug(true)
		}
		extractor = visionClient
		log.Printf("Vision: %s (model: %s)", cfg.Vision.OllamaURL, cfg.Vision.Model)
	} else {
		log.Printf("Vision: disabled, receipt OCR endpoint returns 501")
	}

	if debug {
		feedClient.SetDebug(true)
		communityClient.SetDebug(true)
		log.Printf("Debug logging enabled")
	}

	// Initialize usecase layer
	pricing := usecase.NewPricing(usecase.PricingConfig{
		DealDiscount: cfg.Matching.DealDiscount,
	})

	feedbackService := usecase.NewFeedbackService(
		catalogStore,
		ledger,
		communityClient,
		usecase.FeedbackServiceConfig{
			Detector: usecase.DetectorConfig{
				Matcher:        usecase.MatcherConfig{MinOverlap: cfg.Matching.MinOverlap},
				PriceTolerance: cfg.Matching.PriceTolerance,
			},
			BatchSize:          cfg.Community.BatchSize,
			EnableDebugLogging: debug,
		},
	)

	log.Printf("Matching: overlap=%.2f, tolerance=%.2f, deal discount=%.2f",
		cfg.Matching.MinOverlap,
		cfg.Matching.PriceTolerance,
		cfg.Matching.DealDiscount)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(catalogStore, pricing, feedbackService, extractor)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
