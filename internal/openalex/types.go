package openalex

import "time"

// work is the subset of OpenAlex's /works record shape this client consumes.
// Field names follow the upstream JSON schema (https://api.openalex.org/works).
type work struct {
	ID                    string              `json:"id"`
	DOI                   string              `json:"doi"`
	Title                 string              `json:"title"`
	DisplayName           string              `json:"display_name"`
	PublicationYear       int                 `json:"publication_year"`
	PublicationDate       string              `json:"publication_date"`
	CitedByCount          int                 `json:"cited_by_count"`
	RelevanceScore        float64             `json:"relevance_score"`
	Language              string              `json:"language"`
	AbstractInvertedIndex map[string][]int    `json:"abstract_inverted_index"`
	Authorships           []authorship        `json:"authorships"`
	Locations             []location          `json:"locations"`
	BestOALocation        *location           `json:"best_oa_location"`
	PrimaryLocation       *location           `json:"primary_location"`
	Topics                []topic             `json:"topics"`
	OpenAccess            *openAccess         `json:"open_access"`
	RelatedWorks          []string            `json:"related_works"`
	ReferencedWorks       []string            `json:"referenced_works"`
}

type authorship struct {
	Author struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		ORCID       string `json:"orcid"`
	} `json:"author"`
	Institutions []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"institutions"`
}

type location struct {
	Source struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"source"`
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
}

type topic struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Field       struct {
		DisplayName string `json:"display_name"`
	} `json:"field"`
	Subfield struct {
		DisplayName string `json:"display_name"`
	} `json:"subfield"`
	Domain struct {
		DisplayName string `json:"display_name"`
	} `json:"domain"`
}

type openAccess struct {
	IsOA    bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
}

type meta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor"`
}

type worksResponse struct {
	Meta    meta   `json:"meta"`
	Results []work `json:"results"`
}

// entity is the subset shared by /authors, /institutions, /topics, /sources
// list responses; the fields this client needs are identical across all four.
type entity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	WorksCount  int    `json:"works_count"`
	CitedByCount int   `json:"cited_by_count"`
}

type entitiesResponse struct {
	Meta    meta     `json:"meta"`
	Results []entity `json:"results"`
}

// ResolvedEntity is the result of searchEntities, surfaced through C5's author-name
// resolution and C9's entity-search endpoint.
type ResolvedEntity struct {
	ID           string `json:"id"`
	UpstreamID   string `json:"upstream_id"`
	Name         string `json:"name"`
	WorksCount   int    `json:"works_count"`
	CitedByCount int    `json:"cited_by_count"`
}

// PageResult is the output of searchWorks: the converted papers plus the upstream total
// match count.
type PageResult struct {
	Papers  []ConvertedPaper
	HasMore string // never set by SearchWorks, which paginates by page number, not cursor
	Total   int
}

// ConvertedPaper is a fully reconstructed paper as produced by this client, ready for
// upsert into the paper store (C2).
type ConvertedPaper struct {
	ID              string
	DOI             string
	Title           string
	Abstract        string
	AuthorNames     []string
	PublishedAt     *time.Time
	Journal         string
	URL             string
	PDFURL          string
	CategoryNames   []string
	CitationCount   int
	RelevanceScore  float64
	Language        string
	SourceID        string
	IsOA            bool
	RelatedWorkIDs  []string
}
