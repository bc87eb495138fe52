package works

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
	"github.com/paperscroll/paper-scroll-service/internal/sources"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL, email string) *Client {
	cfg := Config{
		BaseURL:   serverURL,
		Email:     email,
		Timeout:   5 * time.Second,
		RateLimit: 100, // High rate for testing
		BurstSize: 100,
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// sampleWork returns a sample works API record for testing.
func sampleWork() Work {
	return Work{
		ID:              "https://openalex.org/W2741809807",
		DOI:             "https://doi.org/10.1257/aer.20230011",
		DisplayName:     "Minimum Wages and Welfare",
		Title:           "Minimum Wages and Welfare",
		PublicationYear: 2023,
		PublicationDate: "2023-07-01",
		Language:        "en",
		Authorships: []Authorship{
			{Author: AuthorInfo{
				ID:          "https://openalex.org/A1",
				DisplayName: "Jane Doe",
				Orcid:       "https://orcid.org/0000-0001-2345-6789",
			}},
			{Author: AuthorInfo{
				ID:          "https://openalex.org/A2",
				DisplayName: "John Smith",
			}},
		},
		PrimaryLocation: &Location{
			LandingPageURL: "https://doi.org/10.1257/aer.20230011",
			Source: &Source{
				ID:          "https://openalex.org/S123",
				DisplayName: "American Economic Review",
				ISSN:        []string{"0002-8282", "1944-7981"},
			},
		},
		OpenAccess: &OpenAccess{
			IsOA:     true,
			OAURL:    "https://example.org/oa.pdf",
			OAStatus: "green",
		},
		Biblio: Biblio{
			Volume:    "113",
			Issue:     "7",
			FirstPage: "1",
			LastPage:  "42",
		},
		AbstractInvertedIndex: map[string][]int{
			"Minimum": {0},
			"wages":   {1},
			"matter.": {2},
		},
	}
}

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works/https://doi.org/10.1257/aer.20230011", r.URL.Path)
		assert.Equal(t, "reader@example.com", r.URL.Query().Get("mailto"))
		require.NoError(t, json.NewEncoder(w).Encode(sampleWork()))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "reader@example.com")
	paper, err := client.Resolve(context.Background(), "10.1257/aer.20230011")
	require.NoError(t, err)

	assert.Equal(t, "10.1257/aer.20230011", paper.DOI)
	assert.Equal(t, "Minimum Wages and Welfare", paper.Title)
	assert.Equal(t, "Minimum wages matter.", paper.Abstract)
	assert.Equal(t, "2023 · American Economic Review", paper.Subtitle)
	assert.Equal(t, "Jane Doe, John Smith", paper.AuthorsJoined)
	require.Len(t, paper.Authors, 2)
	assert.Equal(t, "0000-0001-2345-6789", paper.Authors[0].ORCID)
	assert.Equal(t, 2023, paper.PublicationYear)
	assert.Equal(t, "American Economic Review", paper.Journal)
	assert.Equal(t, []string{"0002-8282", "1944-7981"}, paper.ISSNs)
	assert.Equal(t, "1", paper.Biblio.FirstPage)
	assert.True(t, paper.OpenAccess)
	assert.True(t, paper.Valid())
}

func TestResolveNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.Resolve(context.Background(), "10.1/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.Resolve(context.Background(), "10.1/broken")

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "OpenAlex", apiErr.Source)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestResolveConsultsEmailProviderPerRequest(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get("mailto"))
		mu.Unlock()
		require.NoError(t, json.NewEncoder(w).Encode(sampleWork()))
	}))
	defer server.Close()

	email := "first@example.com"
	cfg := Config{
		BaseURL:       server.URL,
		EmailProvider: func() string { return email },
	}
	client := NewWithHTTPClient(cfg, sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   5 * time.Second,
		RateLimit: 100,
		BurstSize: 100,
		UserAgent: "TestClient/1.0",
	}))

	_, err := client.Resolve(context.Background(), "10.1257/aer.20230011")
	require.NoError(t, err)

	// An email changed between requests reaches the next request.
	email = "second@example.com"
	_, err = client.Resolve(context.Background(), "10.1257/aer.20230011")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, seen)
}

func TestResolveNoMailtoWithoutEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("mailto"))
		require.NoError(t, json.NewEncoder(w).Encode(sampleWork()))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.Resolve(context.Background(), "10.1257/aer.20230011")
	require.NoError(t, err)
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{
			name:  "repeated word",
			index: map[string][]int{"The": {0}, "quick": {1}, "fox": {2, 5}},
			want:  "The quick fox fox",
		},
		{
			name:  "gap positions omitted",
			index: map[string][]int{"alpha": {0}, "omega": {9}},
			want:  "alpha omega",
		},
		{
			name:  "empty index",
			index: map[string][]int{},
			want:  "",
		},
		{
			name:  "nil index",
			index: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.index))
		})
	}
}

func TestReconstructAbstractOversizeGuard(t *testing.T) {
	positions := make([]int, 100_001)
	for i := range positions {
		positions[i] = i
	}
	assert.Equal(t, "", reconstructAbstract(map[string][]int{"x": positions}))
}

func TestWorkToPaperMissingFields(t *testing.T) {
	work := sampleWork()
	work.DisplayName = ""
	work.PrimaryLocation = nil
	work.OpenAccess = nil
	work.AbstractInvertedIndex = nil
	work.Authorships = nil

	paper := workToPaper("10.1257/aer.20230011", &work)

	assert.Equal(t, "Minimum Wages and Welfare", paper.Title)
	assert.Equal(t, "", paper.Subtitle)
	assert.Equal(t, "", paper.Journal)
	assert.Equal(t, "", paper.Abstract)
	assert.False(t, paper.OpenAccess)
	assert.False(t, paper.Valid())
}

func TestNormalizeORCID(t *testing.T) {
	assert.Equal(t, "0000-0001-2345-6789", normalizeORCID("https://orcid.org/0000-0001-2345-6789"))
	assert.Equal(t, "0000-0001-2345-6789", normalizeORCID("0000-0001-2345-6789"))
	assert.Equal(t, "", normalizeORCID(""))
}
