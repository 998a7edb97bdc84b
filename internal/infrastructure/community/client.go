package community

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/pricelens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// DefaultAllowedHosts limits outbound submissions to known community API
// hosts. The API URL is configurable, so without this check a bad config
// value could point submissions at an arbitrary internal address.
var DefaultAllowedHosts = []string{
	"api.checkjebon.nl",
	"localhost",
	"127.0.0.1",
}

// Client submits verified price corrections to the community price API
type Client struct {
	httpClient    *http.Client
	apiURL        string
	contributorID string
	allowedHosts  map[string]bool
	rateLimiter   *rate.Limiter
	debug         bool
}

// Config holds configuration for the community API client
type Config struct {
	APIURL        string
	ContributorID string
	AllowedHosts  []string
	Timeout       time.Duration
}

// NewClient creates a community API client. Submissions are small JSON
// payloads, so a 10s timeout is plenty.
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hosts := config.AllowedHosts
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[h] = true
	}

	// Submission bursts happen when a backlog drains; cap at 1/sec sustained
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiURL:        config.APIURL,
		contributorID: config.ContributorID,
		allowedHosts:  allowed,
		rateLimiter:   limiter,
	}
}

// SetDebug enables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// SubmitBatch POSTs one batch of corrections and returns how many the
// service accepted. Any transport or status failure is an error; the
// caller decides whether to keep going.
func (c *Client) SubmitBatch(ctx context.Context, corrections []domain.Correction) (int, error) {
	if len(corrections) == 0 {
		return 0, nil
	}

	if err := c.checkHost(); err != nil {
		return 0, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter error: %w", err)
	}

	payload := domain.SubmissionRequest{
		Corrections:   corrections,
		ContributorID: c.contributorID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode submission: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/submit-bulk", c.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pricelens/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrSubmissionFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: status %d: %s", domain.ErrSubmissionFailure, resp.StatusCode, string(respBody))
	}

	var result domain.SubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if c.debug {
		log.Printf("[COMMUNITY] Submitted %d corrections, service accepted %d", len(corrections), result.Submitted)
	}
	return result.Submitted, nil
}

// checkHost rejects API URLs whose host is outside the allowlist
func (c *Client) checkHost() error {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return fmt.Errorf("%w: invalid API URL: %v", domain.ErrSubmissionFailure, err)
	}
	if !c.allowedHosts[u.Hostname()] {
		return fmt.Errorf("%w: host %q not in allowlist", domain.ErrSubmissionFailure, u.Hostname())
	}
	return nil
}
