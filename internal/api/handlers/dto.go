package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/models"
	"scifind-backend/internal/userstore"
)

// PaperAuthorDTO is one entry of a PaperDTO's ordered author list.
type PaperAuthorDTO struct {
	DisplayName string  `json:"displayName"`
	AuthorID    *string `json:"authorId,omitempty"`
}

// PaperDTO is the §3 Paper shape the HTTP surface renders, independent of the
// richer gorm-backed storage row in internal/models.
type PaperDTO struct {
	PaperID       string           `json:"paperId"`
	Title         string           `json:"title"`
	Abstract      *string          `json:"abstract,omitempty"`
	TLDR          *string          `json:"tldr,omitempty"`
	Authors       []PaperAuthorDTO `json:"authors"`
	Year          *int             `json:"year,omitempty"`
	Venue         *string          `json:"venue,omitempty"`
	DOI           *string          `json:"doi,omitempty"`
	URL           *string          `json:"url,omitempty"`
	CitationCount *int             `json:"citationCount,omitempty"`
	CachedAt      time.Time        `json:"cachedAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ToPaperDTO renders a storage-layer Paper into the wire shape of spec.md §3/§6.
func ToPaperDTO(p models.Paper) PaperDTO {
	authors := make([]PaperAuthorDTO, 0, len(p.Authors))
	for _, a := range p.Authors {
		dto := PaperAuthorDTO{DisplayName: a.Name}
		if a.ID != "" {
			id := a.ID
			dto.AuthorID = &id
		}
		authors = append(authors, dto)
	}

	var year *int
	if p.PublishedAt != nil {
		y := p.PublishedAt.Year()
		year = &y
	}

	var citationCount *int
	if p.CitationCount > 0 {
		cc := p.CitationCount
		citationCount = &cc
	}

	return PaperDTO{
		PaperID:       p.ID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		TLDR:          p.TLDR,
		Authors:       authors,
		Year:          year,
		Venue:         p.Journal,
		DOI:           p.DOI,
		URL:           p.URL,
		CitationCount: citationCount,
		CachedAt:      p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToPaperDTOs renders a slice, never returning nil (so it serializes as `[]`, not `null`).
func ToPaperDTOs(papers []models.Paper) []PaperDTO {
	out := make([]PaperDTO, 0, len(papers))
	for _, p := range papers {
		out = append(out, ToPaperDTO(p))
	}
	return out
}

// FromPaperSnapshot converts an optional client-supplied paper_data body into the
// storage-layer Paper shape C2's upsert expects (spec.md's "paper_data promoted to a
// strict request body, passed to C2's upsert" design note).
func FromPaperSnapshot(dto PaperDTO) models.Paper {
	authors := make([]models.Author, 0, len(dto.Authors))
	for _, a := range dto.Authors {
		authors = append(authors, models.Author{Name: a.DisplayName})
	}

	var publishedAt *time.Time
	if dto.Year != nil {
		t := time.Date(*dto.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		publishedAt = &t
	}

	citationCount := 0
	if dto.CitationCount != nil {
		citationCount = *dto.CitationCount
	}

	return models.Paper{
		ID:             dto.PaperID,
		Title:          dto.Title,
		Abstract:       dto.Abstract,
		TLDR:           dto.TLDR,
		Authors:        authors,
		Journal:        dto.Venue,
		PublishedAt:    publishedAt,
		DOI:            dto.DOI,
		URL:            dto.URL,
		CitationCount:  citationCount,
		SourceProvider: "openalex",
		SourceID:       dto.PaperID,
	}
}

// FolderDTO mirrors spec.md §3's Folder, including its derived paperCount.
type FolderDTO struct {
	FolderID    string     `json:"folderId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	PaperIDs    []string   `json:"paperIds"`
	PaperCount  int        `json:"paperCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Papers      []PaperDTO `json:"papers,omitempty"`
}

// ToFolderDTO renders a Folder, optionally embedding resolved paper snapshots.
func ToFolderDTO(f models.Folder, papers []models.Paper) FolderDTO {
	ids := f.PaperIDs
	if ids == nil {
		ids = []string{}
	}
	dto := FolderDTO{
		FolderID:    f.ID,
		Name:        f.Name,
		Description: f.Description,
		PaperIDs:    ids,
		PaperCount:  f.PaperCount(),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if papers != nil {
		dto.Papers = ToPaperDTOs(papers)
	}
	return dto
}

// FollowDTO mirrors spec.md §3's Follow.
type FollowDTO struct {
	EntityType string    `json:"type"`
	EntityID   string    `json:"entityId"`
	EntityName string    `json:"entityName"`
	UpstreamID string    `json:"openalexId,omitempty"`
	FollowedAt time.Time `json:"followedAt"`
}

func ToFollowDTO(f models.Follow) FollowDTO {
	return FollowDTO{
		EntityType: f.EntityType,
		EntityID:   f.EntityID,
		EntityName: f.EntityName,
		UpstreamID: f.UpstreamID,
		FollowedAt: f.FollowedAt,
	}
}

// RespondError maps a typed internal error to the §7 HTTP status and a minimal JSON
// body. Sentinel store errors (which carry no HTTP status of their own) are mapped
// explicitly; anything else falls back to the SciFindError's own HTTPStatus, or 500.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case err == userstore.ErrProtectedFolder:
		status = http.StatusForbidden
	case err == userstore.ErrNotFound:
		status = http.StatusNotFound
	case err == userstore.ErrStoreConflict:
		status = http.StatusInternalServerError
	default:
		if sfe, ok := err.(*apperrors.SciFindError); ok {
			status = sfe.HTTPStatus()
		}
	}

	c.JSON(status, gin.H{
		"error":      http.StatusText(status),
		"message":    message,
		"request_id": c.GetString("request_id"),
	})
}

// ClampPage clamps page to >= 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPerPage checks perPage against spec.md §6's [1, 200] range: 0 yields the
// 200 default, and any other out-of-range value is returned unchanged with false.
func ClampPerPage(perPage int) (int, bool) {
	if perPage == 0 {
		return 200, true
	}
	if perPage < 1 || perPage > 200 {
		return perPage, false
	}
	return perPage, true
}

// ClampLimit checks limit against [1, 100]: 0 yields the 20 default, and any other
// out-of-range value is returned unchanged with false.
func ClampLimit(limit int) (int, bool) {
	if limit == 0 {
		return 20, true
	}
	if limit < 1 || limit > 100 {
		return limit, false
	}
	return limit, true
}
