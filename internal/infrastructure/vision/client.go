package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultOllamaURL points at a local Ollama install. The host is pinned to
// localhost: receipt images never leave the machine.
const (
	DefaultOllamaURL = "http://localhost:11434/api/generate"
	DefaultModel     = "llama3.2-vision:11b"
)

var allowedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
}

// extractionPrompt asks the model for the purchased line items only.
// Dutch receipts label quantity columns Hvl or Aantal.
const extractionPrompt = `Look at this receipt image. Extract the purchased items - these are lines with a quantity (Hvl/Aantal), product name, and price.
IGNORE: BTW details, loyalty cards, totals, payment info, store info.

Return ONLY valid JSON:
{"is_receipt":true,"store":"StoreName","date":"YYYY-MM-DD","time":"HH:MM","amount":0.00,"items":[{"name":"Product Name","price":0.00}],"category":"boodschappen"}

Categories: boodschappen (groceries), horeca (restaurant/cafe), transport (fuel/parking), klussen (hardware/DIY), wonen (home), kleding (clothes), elektronica (electronics), gezondheid (pharmacy), overig (other)

For Praxis/Gamma/Hornbach use "klussen". For AH/Jumbo/Lidl use "boodschappen".

If not a receipt: {"is_receipt":false}`

// Client extracts receipt data from images via a local Ollama vision model
type Client struct {
	httpClient *http.Client
	ollamaURL  string
	model      string
	debug      bool
}

// Config holds configuration for the vision client
type Config struct {
	OllamaURL string
	Model     string
	Timeout   time.Duration
}

// generateRequest is the Ollama /api/generate request body
type generateRequest struct {
	Model   string             `json:"model"`
	Prompt  string             `json:"prompt"`
	Images  []string           `json:"images"`
	Stream  bool               `json:"stream"`
	Options map[string]float64 `json:"options"`
}

// generateResponse carries the model's text output
type generateResponse struct {
	Response string `json:"response"`
}

// NewClient creates a vision client. Vision inference on consumer hardware
// is slow, so the timeout defaults to a full two minutes. The Ollama URL
// must resolve to localhost; anything else is rejected.
func NewClient(config Config) (*Client, error) {
	ollamaURL := config.OllamaURL
	if ollamaURL == "" {
		ollamaURL = DefaultOllamaURL
	}

	u, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ollama URL scheme not allowed: %q", u.Scheme)
	}
	if !allowedHosts[u.Hostname()] {
		return nil, fmt.Errorf("ollama host must be localhost, got %q", u.Hostname())
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		ollamaURL: ollamaURL,
		model:     model,
	}, nil
}

// SetDebug enables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// ExtractReceipt sends the image to the vision model and parses its answer
// into a receipt record. The result is raw model output; callers must run
// it through receipt validation before trusting any field.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte) (*domain.Receipt, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrVisionFailure)
	}

	payload := generateRequest{
		Model:  c.model,
		Prompt: extractionPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Stream: false,
		// Low temperature keeps the model close to literal transcription
		Options: map[string]float64{"temperature": 0.1},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ollamaURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVisionFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrVisionFailure, resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: malformed ollama response: %v", domain.ErrVisionFailure, err)
	}

	receipt, err := parseModelOutput(result.Response)
	if err != nil {
		if c.debug {
			log.Printf("[VISION] Unparseable model output: %.200s", result.Response)
		}
		return nil, err
	}
	return receipt, nil
}

// parseModelOutput pulls the first JSON object out of the model's text.
// Vision models often wrap the JSON in prose or markdown fences, so the
// parse works on the outermost brace pair rather than the whole string.
func parseModelOutput(text string) (*domain.Receipt, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in model output", domain.ErrVisionFailure)
	}

	var receipt domain.Receipt
	if err := json.Unmarshal([]byte(text[start:end+1]), &receipt); err != nil {
		return nil, fmt.Errorf("%w: model output is not valid receipt JSON: %v", domain.ErrVisionFailure, err)
	}
	return &receipt, nil
}
