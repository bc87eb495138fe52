package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
	"github.com/paperscroll/paper-scroll-service/internal/sources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRows is the page size requested from the catalog API.
	DefaultRows = 200

	// DefaultPageDelay is the fixed delay between consecutive page requests,
	// per the catalog API's politeness expectations.
	DefaultPageDelay = 500 * time.Millisecond

	// DefaultTimeout is the per-request timeout. Catalog pages for large
	// journals can be slow, so this is deliberately generous.
	DefaultTimeout = 100 * time.Second

	// firstCursor is the sentinel cursor value for the first page.
	firstCursor = "*"
)

// Config holds configuration for the catalog client.
type Config struct {
	// BaseURL is the catalog API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Rows is the page size. Defaults to DefaultRows.
	Rows int

	// PageDelay is the pause between consecutive page requests.
	// Defaults to DefaultPageDelay.
	PageDelay time.Duration

	// Timeout is the per-request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxRetries is the transport-level retry budget for 429/5xx responses.
	MaxRetries int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Rows == 0 {
		c.Rows = DefaultRows
	}
	if c.PageDelay == 0 {
		c.PageDelay = DefaultPageDelay
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Client fetches journal-year catalog pages.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new catalog client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	// The shared limiter doubles as the inter-page delay: with burst 1 and a
	// rate of one token per PageDelay, every request after the first waits
	// out the delay.
	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  float64(time.Second) / float64(cfg.PageDelay),
		BurstSize:  1,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  cfg.UserAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a catalog client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// JournalYear fetches every item the journal with the given ISSN published in
// the given calendar year, paging through the catalog until the API returns
// no next cursor or an empty batch. Only item DOIs are retained.
//
// Failures are not retried at the page level: any HTTP or parse failure
// aborts the fetch and propagates to the caller, which treats it as a hard
// failure of the whole sync pass.
func (c *Client) JournalYear(ctx context.Context, issn string, year int) ([]domain.SnapshotItem, error) {
	var items []domain.SnapshotItem

	cursor := firstCursor
	for {
		pageURL, err := c.buildPageURL(issn, year, cursor)
		if err != nil {
			return nil, fmt.Errorf("building page URL: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching catalog page for %s/%d: %w", issn, year, err)
		}

		message, err := decodePage(resp)
		if err != nil {
			return nil, fmt.Errorf("catalog page for %s/%d: %w", issn, year, err)
		}

		for _, item := range message.Items {
			items = append(items, domain.SnapshotItem{DOI: item.DOI})
		}

		if message.NextCursor == "" || len(message.Items) == 0 {
			return items, nil
		}
		cursor = message.NextCursor
	}
}

// decodePage reads one catalog response and returns its message payload.
func decodePage(resp *http.Response) (*worksMessage, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError("Crossref", resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var page worksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &page.Message, nil
}

// buildPageURL constructs the URL for one catalog page, scoped to the ISSN
// and a date filter covering the full calendar year.
func (c *Client) buildPageURL(issn string, year int, cursor string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = fmt.Sprintf("/journals/%s/works", issn)

	query := url.Values{}
	query.Set("filter", fmt.Sprintf("from-pub-date:%d-01-01,until-pub-date:%d-12-31", year, year))
	query.Set("rows", strconv.Itoa(c.config.Rows))
	query.Set("cursor", cursor)

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}
