// Package notion adapts a Notion workspace into the invoice backend's
// gateways. It owns the wire types, the property extractors and builders,
// the page-to-entity mappers, the HTTP client and the error classifier.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/garyjia/notion-invoice/internal/infrastructure/metrics"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2024-06-15"
)

// Config holds Notion API client settings
type Config struct {
	APIKey            string
	BaseURL           string
	Version           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the client defaults. Notion allows an average of
// three requests per second per integration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Version:           DefaultVersion,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 3,
		Burst:             3,
	}
}

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("notion api error: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Client is a minimal Notion REST client.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new Notion client. A nil httpClient gets a default one
// bounded by cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:     logger,
	}
}

// QueryDatabase runs a query and returns every matching page, following
// pagination cursors until the result set is exhausted.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) ([]Page, error) {
	path := "/databases/" + databaseID + "/query"
	pages := []Page{}

	for {
		var resp QueryResponse
		if err := c.do(ctx, http.MethodPost, path, "databases.query", req, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		req.StartCursor = *resp.NextCursor
	}

	return pages, nil
}

// GetPage retrieves a page by id.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, "pages.get", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePage creates a page in a database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props Properties) (*Page, error) {
	body := CreatePageRequest{
		Parent:     Parent{DatabaseID: databaseID},
		Properties: props,
	}
	var page Page
	if err := c.do(ctx, http.MethodPost, "/pages", "pages.create", body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePage writes properties of an existing page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props Properties) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, "pages.update", UpdatePageRequest{Properties: props}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ArchivePage soft-deletes a page.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	archived := true
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, "pages.archive", UpdatePageRequest{Archived: &archived}, nil)
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notion %s: rate limiter: %w", endpoint, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notion %s: encode request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("notion %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Notion-Version", c.config.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordNotionRequest(endpoint, 0, time.Since(start))
		return fmt.Errorf("notion %s: network error: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.RecordNotionRequest(endpoint, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("notion %s: read response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, data)
		c.logger.Debug("Notion API returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status", apiErr.StatusCode),
			zap.String("code", apiErr.Code))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("notion %s: decode response: %w", endpoint, err)
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if gjson.ValidBytes(body) && gjson.GetBytes(body, "object").String() == "error" {
		apiErr.Code = gjson.GetBytes(body, "code").String()
		apiErr.Message = gjson.GetBytes(body, "message").String()
		return apiErr
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr.Message = msg
	return apiErr
}
