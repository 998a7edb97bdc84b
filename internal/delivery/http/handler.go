package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// defaultLimit caps result lists when the caller does not ask for a limit.
const defaultLimit = 10

// CatalogProvider is what the handlers need from the catalog layer
type CatalogProvider interface {
	Catalog(ctx context.Context) (domain.Catalog, error)
	Refresh(ctx context.Context) (domain.Catalog, error)
	Stats() (map[string]int, time.Time, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog   CatalogProvider
	pricing   *usecase.Pricing
	feedback  *usecase.FeedbackService
	extractor domain.ReceiptExtractor // nil when vision is disabled
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog CatalogProvider, pricing *usecase.Pricing, feedback *usecase.FeedbackService, extractor domain.ReceiptExtractor) *Handler {
	return &Handler{
		catalog:   catalog,
		pricing:   pricing,
		feedback:  feedback,
		extractor: extractor,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// SearchPrices handles product search across store catalogs
func (h *Handler) SearchPrices(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	catalog, ok := h.loadCatalog(c)
	if !ok {
		return
	}

	results := h.pricing.Search(query, catalog, storesParam(c), limitParam(c))
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// ComparePrices returns the cheapest match per store for a product
func (h *Handler) ComparePrices(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	catalog, ok := h.loadCatalog(c)
	if !ok {
		return
	}

	results := h.pricing.Compare(query, catalog, storesParam(c), limitParam(c))
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// FindDeals lists staples priced well below their usual level
func (h *Handler) FindDeals(c *gin.Context) {
	catalog, ok := h.loadCatalog(c)
	if !ok {
		return
	}

	deals := h.pricing.FindDeals(catalog, storesParam(c), limitParam(c))
	c.JSON(http.StatusOK, gin.H{
		"count": len(deals),
		"deals": deals,
	})
}

// verifyRequest is the receipt verification request body. Either a receipt
// record or a base64 image must be present; the image path needs the vision
// model.
type verifyRequest struct {
	Receipt     *domain.Receipt `json:"receipt"`
	ImageBase64 string          `json:"image_base64"`
}

// VerifyReceipt checks receipt prices against the catalog and records any
// discrepancies in the local feedback ledger
func (h *Handler) VerifyReceipt(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	receipt := req.Receipt
	if receipt == nil && req.ImageBase64 != "" {
		if h.extractor == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "receipt OCR is not configured"})
			return
		}
		image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is not valid base64"})
			return
		}
		receipt, err = h.extractor.ExtractReceipt(c.Request.Context(), image)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "receipt analysis unavailable"})
			return
		}
	}
	if receipt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either receipt or image_base64 is required"})
		return
	}

	validated, err := usecase.ValidateReceipt(receipt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receipt failed validation"})
		return
	}
	if !validated.IsReceipt {
		c.JSON(http.StatusOK, gin.H{
			"is_receipt":    false,
			"discrepancies": []domain.Discrepancy{},
		})
		return
	}

	discrepancies, err := h.feedback.VerifyReceipt(c.Request.Context(), validated)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if discrepancies == nil {
		discrepancies = []domain.Discrepancy{}
	}

	c.JSON(http.StatusOK, gin.H{
		"is_receipt":    true,
		"store":         validated.Store,
		"count":         len(discrepancies),
		"discrepancies": discrepancies,
	})
}

// SubmitFeedback pushes pending ledger entries to the community database
func (h *Handler) SubmitFeedback(c *gin.Context) {
	report, err := h.feedback.Submit(c.Request.Context())
	if err != nil {
		// The report still carries partial progress
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "community API unavailable",
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// FeedbackStats reports ledger totals
func (h *Handler) FeedbackStats(c *gin.Context) {
	stats, err := h.feedback.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feedback ledger unavailable"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RefreshCatalog forces a feed download regardless of snapshot freshness
func (h *Handler) RefreshCatalog(c *gin.Context) {
	catalog, err := h.catalog.Refresh(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stores":   len(catalog),
		"products": catalog.TotalProducts(),
	})
}

// CatalogStats reports per-store product counts and snapshot age
func (h *Handler) CatalogStats(c *gin.Context) {
	counts, cachedAt, err := h.catalog.Stats()
	if err != nil {
		h.writeError(c, err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"stores":    counts,
		"total":     total,
		"cached_at": cachedAt,
	})
}

// loadCatalog fetches the catalog for read endpoints, writing the error
// response itself on failure
func (h *Handler) loadCatalog(c *gin.Context) (domain.Catalog, bool) {
	catalog, err := h.catalog.Catalog(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return catalog, true
}

// writeError maps domain errors onto HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidReceipt):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, domain.ErrCatalogUnavailable), errors.Is(err, domain.ErrFeedFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price catalog temporarily unavailable"})
	case errors.Is(err, domain.ErrSubmissionFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "community API unavailable"})
	case errors.Is(err, domain.ErrVisionFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "receipt analysis unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// storesParam parses the comma-separated stores filter, falling back to
// the default store preference order
func storesParam(c *gin.Context) []string {
	raw := strings.TrimSpace(c.Query("stores"))
	if raw == "" {
		return domain.DefaultStores
	}

	var stores []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			stores = append(stores, s)
		}
	}
	return stores
}

// limitParam parses the result limit, clamped to a sane range
func limitParam(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return defaultLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
