// Package works provides the works-lookup (OpenAlex) metadata resolver.
//
// OpenAlex is a free, open catalog of scholarly works. The resolver turns a
// single DOI into a fully hydrated paper record, reconstructing the abstract
// from the API's inverted-index representation.
//
// API documentation: https://docs.openalex.org/
package works

// Work represents a scholarly work as returned by the works endpoint.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	PublicationDate string       `json:"publication_date"`
	Language        string       `json:"language"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`
	OpenAccess      *OpenAccess  `json:"open_access"`
	Biblio          Biblio       `json:"biblio"`

	// Abstract is stored as an inverted index - we will reconstruct it.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	Author AuthorInfo `json:"author"`
}

// AuthorInfo contains basic author information.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Orcid       string `json:"orcid"`
}

// Location represents where a work is available.
type Location struct {
	Source         *Source `json:"source"`
	LandingPageURL string  `json:"landing_page_url"`
	PDFURL         string  `json:"pdf_url"`
}

// Source represents a publication venue (journal, repository, etc.).
type Source struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	ISSN        []string `json:"issn"`
}

// OpenAccess contains open access information for a work.
type OpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAURL    string `json:"oa_url"`
	OAStatus string `json:"oa_status"`
}

// Biblio contains bibliographic locator fields.
type Biblio struct {
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}
