package works

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
	"github.com/paperscroll/paper-scroll-service/internal/sources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// The polite pool (with a mailto email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// doiPrefix is the URL prefix OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"
)

// Config holds configuration for the works resolver.
type Config struct {
	// BaseURL is the works API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Email is the contact email for the polite pool. When set, it is
	// appended as a mailto query parameter per the API's courtesy
	// convention.
	Email string

	// EmailProvider supplies the contact email per request, so an email
	// changed in settings takes effect without a restart. When set it
	// takes precedence over Email.
	EmailProvider func() string

	// Timeout is the request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 10.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to 10.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client resolves DOIs to full paper records.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new works client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "PaperScroll/1.0"
	if cfg.Email != "" {
		userAgent = "PaperScroll/1.0 (mailto:" + cfg.Email + ")"
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a works client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Resolve fetches the full metadata record for a DOI and derives the fields
// the feed and UI need: the reconstructed abstract, the "{year} · {journal}"
// subtitle and the joined author list.
//
// Resolve performs no retries of its own; retry policy lives in the feed's
// refill loop, which simply draws a different identifier on failure.
func (c *Client) Resolve(ctx context.Context, doi string) (*domain.Paper, error) {
	lookupURL, err := c.buildLookupURL(doi)
	if err != nil {
		return nil, fmt.Errorf("building lookup URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("work", doi)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var work Work
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&work); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return workToPaper(doi, &work), nil
}

// email returns the contact email for the current request.
func (c *Client) email() string {
	if c.config.EmailProvider != nil {
		return c.config.EmailProvider()
	}
	return c.config.Email
}

// buildLookupURL constructs the works lookup URL for a DOI. The API expects
// the full https://doi.org/ form of the DOI as the path suffix and handles
// its decoding on their side.
func (c *Client) buildLookupURL(doi string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works/" + doiPrefix + doi

	if email := c.email(); email != "" {
		query := url.Values{}
		query.Set("mailto", email)
		baseURL.RawQuery = query.Encode()
	}

	return baseURL.String(), nil
}

// workToPaper converts a works API record to a domain Paper, populating the
// derived display fields.
func workToPaper(doi string, work *Work) *domain.Paper {
	authors := make([]domain.Author, 0, len(work.Authorships))
	names := make([]string, 0, len(work.Authorships))
	for _, authorship := range work.Authorships {
		authors = append(authors, domain.Author{
			Name:  authorship.Author.DisplayName,
			ORCID: normalizeORCID(authorship.Author.Orcid),
		})
		names = append(names, authorship.Author.DisplayName)
	}

	title := work.DisplayName
	if title == "" {
		title = work.Title
	}

	var journal string
	var issns []string
	var landingPageURL string
	if work.PrimaryLocation != nil {
		landingPageURL = work.PrimaryLocation.LandingPageURL
		if work.PrimaryLocation.Source != nil {
			journal = work.PrimaryLocation.Source.DisplayName
			issns = work.PrimaryLocation.Source.ISSN
		}
	}

	var subtitle string
	if work.PublicationYear != 0 && journal != "" {
		subtitle = fmt.Sprintf("%d · %s", work.PublicationYear, journal)
	}

	var openAccess bool
	var oaURL string
	if work.OpenAccess != nil {
		openAccess = work.OpenAccess.IsOA
		oaURL = work.OpenAccess.OAURL
	}

	return &domain.Paper{
		DOI:             normalizeDOI(doi, work.DOI),
		Title:           title,
		Abstract:        reconstructAbstract(work.AbstractInvertedIndex),
		Subtitle:        subtitle,
		AuthorsJoined:   strings.Join(names, ", "),
		Authors:         authors,
		PublicationYear: work.PublicationYear,
		PublicationDate: work.PublicationDate,
		Journal:         journal,
		Language:        work.Language,
		ISSNs:           issns,
		Biblio: domain.Biblio{
			Volume:    work.Biblio.Volume,
			Issue:     work.Biblio.Issue,
			FirstPage: work.Biblio.FirstPage,
			LastPage:  work.Biblio.LastPage,
		},
		OpenAccess:     openAccess,
		OAURL:          oaURL,
		LandingPageURL: landingPageURL,
	}
}

// normalizeDOI prefers the DOI the caller asked for and falls back to the
// record's own DOI, stripped of the https://doi.org/ prefix.
func normalizeDOI(requested, recorded string) string {
	if requested != "" {
		return requested
	}
	return strings.TrimPrefix(strings.TrimSpace(recorded), doiPrefix)
}

// normalizeORCID strips any URL prefix from ORCID identifiers.
func normalizeORCID(orcid string) string {
	if orcid == "" {
		return ""
	}
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	return strings.TrimSpace(orcid)
}

// reconstructAbstract rebuilds the abstract text from the API's inverted
// index, which maps each word to the list of positions at which it occurs.
// The (position, word) pairs are flattened, stable-sorted by position and
// joined with single spaces; gap positions are simply omitted, never padded.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}

	// Guard against malicious payloads with excessive position entries.
	const maxAbstractWords = 100_000
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	var sb strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(pair.word)
	}
	return sb.String()
}
