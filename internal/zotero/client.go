// Package zotero exports papers to a Zotero library through the Zotero Web
// API.
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
)

const (
	// DefaultBaseURL is the Zotero Web API base URL.
	DefaultBaseURL = "https://api.zotero.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the Zotero client.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout is the request timeout. Defaults to 30 seconds.
	Timeout time.Duration
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Client talks to the Zotero Web API. Credentials are per-request because the
// user can change them in settings at any time.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a Zotero client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// creator is a Zotero item creator.
type creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// item is the journalArticle payload the API expects.
type item struct {
	ItemType        string    `json:"itemType"`
	Title           string    `json:"title"`
	Creators        []creator `json:"creators"`
	AbstractNote    string    `json:"abstractNote"`
	PublicationName string    `json:"publicationTitle"`
	Volume          string    `json:"volume"`
	Issue           string    `json:"issue"`
	Pages           string    `json:"pages"`
	Date            string    `json:"date"`
	Language        string    `json:"language"`
	DOI             string    `json:"DOI"`
	ISSN            string    `json:"issn"`
	URL             string    `json:"url"`
}

// writeResponse is the relevant part of a Zotero write response.
type writeResponse struct {
	Success map[string]string `json:"success"`
	Failed  map[string]struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"failed"`
}

// Export creates a journalArticle item for the paper in the user's library
// and returns the key of the created item.
func (c *Client) Export(ctx context.Context, paper *domain.Paper, libraryID, apiKey string) (string, error) {
	if libraryID == "" || apiKey == "" {
		return "", domain.NewValidationError("zotero", "library ID and API key must be configured")
	}

	payload, err := json.Marshal([]item{itemFromPaper(paper)})
	if err != nil {
		return "", fmt.Errorf("marshal export payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/items", c.config.BaseURL, libraryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Zotero-API-Key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", domain.NewExternalAPIError("Zotero", resp.StatusCode, string(body), nil)
	}

	var result writeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if key, ok := result.Success["0"]; ok {
		return key, nil
	}
	if failure, ok := result.Failed["0"]; ok {
		return "", domain.NewExternalAPIError("Zotero", failure.Code, failure.Message, nil)
	}
	return "", fmt.Errorf("zotero write reported neither success nor failure")
}

// itemFromPaper maps a paper to the journalArticle item shape.
func itemFromPaper(p *domain.Paper) item {
	creators := make([]creator, 0, len(p.Authors))
	for _, author := range p.Authors {
		first, last := splitName(author.Name)
		creators = append(creators, creator{
			CreatorType: "author",
			FirstName:   first,
			LastName:    last,
		})
	}

	var issn string
	if len(p.ISSNs) > 0 {
		issn = p.ISSNs[0]
	}

	return item{
		ItemType:        "journalArticle",
		Title:           p.Title,
		Creators:        creators,
		AbstractNote:    p.Abstract,
		PublicationName: p.Journal,
		Volume:          p.Biblio.Volume,
		Issue:           p.Biblio.Issue,
		Pages:           p.PageRange(),
		Date:            p.PublicationDate,
		Language:        p.Language,
		DOI:             strings.TrimPrefix(p.DOI, "https://doi.org/"),
		ISSN:            issn,
		URL:             p.LandingPageURL,
	}
}

// splitName splits a display name on the first space into given and family
// parts. Single-token names become the family name.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, " "); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
