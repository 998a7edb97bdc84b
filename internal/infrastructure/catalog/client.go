package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// DefaultFeedURL is the checkjebon open-data feed with price lists for the
// major Dutch supermarket chains.
const DefaultFeedURL = "https://raw.githubusercontent.com/supermarkt/checkjebon/refs/heads/main/data/supermarkets.json"

// feedStore is one store object in the feed: n is the store short code,
// d its product list.
type feedStore struct {
	Name     string           `json:"n"`
	Products []domain.Product `json:"d"`
}

// Client downloads the supermarket catalog feed
type Client struct {
	httpClient  *http.Client
	feedURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a feed client. The full feed is tens of megabytes, so
// downloads get a generous 60s timeout; the rate limiter keeps repeated
// refresh calls from hammering the feed host.
func NewClient(feedURL string) *Client {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}

	// One refresh per minute is plenty for a feed that changes daily
	limiter := rate.NewLimiter(rate.Every(time.Minute), 2)

	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		feedURL:     feedURL,
		rateLimiter: limiter,
	}
}

// SetDebug enables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Download fetches the feed and returns the catalog keyed by store code.
// Transient failures are retried up to 3 times with exponential backoff.
func (c *Client) Download(ctx context.Context) (domain.Catalog, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		catalog, err := c.download(ctx)
		if err != nil {
			if c.debug {
				log.Printf("[CATALOG] Download error (attempt %d): %v", attempt, err)
			}
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
			continue
		}

		if c.debug {
			log.Printf("[CATALOG] Downloaded %d products from %d stores", catalog.TotalProducts(), len(catalog))
		}
		return catalog, nil
	}

	return nil, lastErr
}

func (c *Client) download(ctx context.Context) (domain.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "pricelens/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFeedFailure, resp.StatusCode, string(body))
	}

	var stores []feedStore
	if err := json.NewDecoder(resp.Body).Decode(&stores); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	catalog := make(domain.Catalog, len(stores))
	for _, store := range stores {
		key := strings.ToLower(strings.TrimSpace(store.Name))
		if key == "" {
			continue
		}
		catalog[key] = store.Products
	}

	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: feed contained no stores", domain.ErrFeedFailure)
	}

	return catalog, nil
}

// exponentialBackoff returns the wait before the next retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))) * time.Millisecond
}
