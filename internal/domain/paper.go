// Package domain holds the core data model for the paper scroll service.
package domain

import (
	"strings"
)

// Author represents a paper author as returned by the works-lookup API.
type Author struct {
	Name  string `json:"name"`
	ORCID string `json:"orcid,omitempty"`
}

// Biblio holds bibliographic locator fields used for export.
type Biblio struct {
	Volume    string `json:"volume,omitempty"`
	Issue     string `json:"issue,omitempty"`
	FirstPage string `json:"first_page,omitempty"`
	LastPage  string `json:"last_page,omitempty"`
}

// Paper is a fully resolved paper record: the metadata fetched from the
// works-lookup API plus the fields derived at resolution time (Abstract,
// Subtitle, AuthorsJoined). Absent upstream fields are zero values, never
// sentinel strings.
type Paper struct {
	DOI             string   `json:"doi"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Subtitle        string   `json:"subtitle"`
	AuthorsJoined   string   `json:"authors_joined"`
	Authors         []Author `json:"authors"`
	PublicationYear int      `json:"publication_year,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Journal         string   `json:"journal,omitempty"`
	Language        string   `json:"language,omitempty"`
	ISSNs           []string `json:"issn,omitempty"`
	Biblio          Biblio   `json:"biblio"`
	OpenAccess      bool     `json:"open_access"`
	OAURL           string   `json:"oa_url,omitempty"`
	LandingPageURL  string   `json:"landing_page_url,omitempty"`
}

// Valid reports whether the paper is usable by the feed: a non-empty
// reconstructed abstract and at least one author. Many catalog entries lack
// abstracts, so most resolution attempts are expected to fail this check.
func (p *Paper) Valid() bool {
	return p.Abstract != "" && len(p.Authors) > 0
}

// PageRange formats the biblio page fields as "first-last", or just the first
// page when no last page is present.
func (p *Paper) PageRange() string {
	if p.Biblio.FirstPage != "" && p.Biblio.LastPage != "" {
		return p.Biblio.FirstPage + "-" + p.Biblio.LastPage
	}
	return p.Biblio.FirstPage
}

// StarFileKey derives the starred-paper filename for a DOI. Path separators
// are replaced so the DOI can serve as a flat filename; the existence of the
// file is the starred flag. DOIs that differ only in the separator character
// collide, which is acceptable given DOI syntax.
func StarFileKey(doi string) string {
	return strings.ReplaceAll(doi, "/", "_") + ".json"
}
