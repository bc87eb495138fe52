// Package catalog provides the journal-catalog (Crossref) page fetcher.
//
// One call fetches every work a journal published in one calendar year,
// following the API's opaque cursor through as many pages as it takes. Only
// the DOI of each item is retained; full metadata is resolved lazily by the
// works client when a paper is actually served.
//
// API documentation: https://api.crossref.org/swagger-ui/index.html
package catalog

// worksResponse is the top-level response of the journal works endpoint.
type worksResponse struct {
	Message worksMessage `json:"message"`
}

// worksMessage carries one page of items and the cursor for the next page.
// A missing/empty next-cursor or an empty item batch terminates pagination.
type worksMessage struct {
	Items      []workItem `json:"items"`
	NextCursor string     `json:"next-cursor"`
}

// workItem is a single catalog entry. The catalog returns rich per-item
// metadata; everything but the DOI is deliberately dropped at snapshot time.
type workItem struct {
	DOI string `json:"DOI"`
}
