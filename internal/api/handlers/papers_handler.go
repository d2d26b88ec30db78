package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/papercache"
	"scifind-backend/internal/queryparser"
	"scifind-backend/internal/search"
)

// PapersHandler binds the paper search/lookup/recommendation endpoints of §6 onto
// C1, C5, C7, C4.
type PapersHandler struct {
	*Core
}

func NewPapersHandler(core *Core) *PapersHandler {
	return &PapersHandler{Core: core}
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryIntDefault(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func (h *PapersHandler) paginationParams(c *gin.Context) (page, perPage int, ok bool) {
	page = ClampPage(queryIntDefault(c, "page", 1))
	perPage, ok = ClampPerPage(queryIntDefault(c, "per_page", 0))
	return page, perPage, ok
}

// Search serves GET /api/papers/search (structured topics/authors/years input).
func (h *PapersHandler) Search(c *gin.Context) {
	page, perPage, ok := h.paginationParams(c)
	if !ok {
		RespondError(c, apperrors.NewValidationError("per_page must be between 1 and 200", "per_page", c.Query("per_page")))
		return
	}

	sortBy := search.SortBy(c.DefaultQuery("sort_by", string(search.SortRelevance)))
	req := search.Request{
		Topics:       splitCSV(c.Query("topics")),
		Authors:      splitCSV(c.Query("authors")),
		Years:        splitCSV(c.Query("years")),
		Institutions: splitCSV(c.Query("institutions")),
		SortBy:       sortBy,
		Page:         page,
		PerPage:      perPage,
		Principal:    principal(c),
	}

	result, err := h.SearchEng.Search(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToPaperDTOs(result.Papers))
}

// SearchQuery serves GET /api/papers/search/query (natural-language input).
func (h *PapersHandler) SearchQuery(c *gin.Context) {
	page, perPage, ok := h.paginationParams(c)
	if !ok {
		RespondError(c, apperrors.NewValidationError("per_page must be between 1 and 200", "per_page", c.Query("per_page")))
		return
	}
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		RespondError(c, apperrors.NewValidationError("q is required", "q", q))
		return
	}

	sortBy := search.SortBy(c.DefaultQuery("sort_by", string(search.SortRelevance)))
	req := search.Request{
		Query:     q,
		SortBy:    sortBy,
		Page:      page,
		PerPage:   perPage,
		Principal: principal(c),
	}

	result, err := h.SearchEng.Search(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToPaperDTOs(result.Papers))
}

// GetByID serves GET /api/papers/{paperId}, preferring the cache and falling back to
// the upstream client on a miss.
func (h *PapersHandler) GetByID(c *gin.Context) {
	paperID := c.Param("paperId")
	ctx := c.Request.Context()

	if cached, err := h.Cache.Get(ctx, paperID); err == nil && cached != nil {
		c.JSON(http.StatusOK, ToPaperDTO(*cached))
		return
	}

	cp, err := h.Upstream.FetchWorkByID(ctx, paperID)
	if err != nil {
		RespondError(c, err)
		return
	}
	paper := papercache.FromUpstream(*cp)
	if err := h.Cache.Put(ctx, paper); err != nil {
		h.Logger.Warn("failed to cache fetched paper", "paper_id", paperID, "error", err.Error())
	}
	c.JSON(http.StatusOK, ToPaperDTO(paper))
}

// BulkByIDs serves GET /api/papers/bulk/by-ids.
func (h *PapersHandler) BulkByIDs(c *gin.Context) {
	ids := splitCSV(c.Query("paper_ids"))
	if len(ids) == 0 {
		c.JSON(http.StatusOK, []PaperDTO{})
		return
	}

	papers, err := h.Cache.GetMany(c.Request.Context(), ids)
	if err != nil {
		RespondError(c, err)
		return
	}
	found := make(map[string]bool, len(papers))
	for _, p := range papers {
		found[p.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		fetched, err := h.Upstream.FetchWorksByIDs(c.Request.Context(), missing)
		if err != nil {
			h.Logger.Warn("bulk upstream fetch failed", "error", err.Error())
		} else {
			for _, cp := range fetched {
				papers = append(papers, papercache.FromUpstream(cp))
			}
			if len(fetched) > 0 {
				if err := h.Cache.PutMany(c.Request.Context(), papers); err != nil {
					h.Logger.Warn("failed to cache bulk-fetched papers", "error", err.Error())
				}
			}
		}
	}
	c.JSON(http.StatusOK, ToPaperDTOs(papers))
}

// Similar serves GET /api/papers/{paperId}/similar.
func (h *PapersHandler) Similar(c *gin.Context) {
	paperID := c.Param("paperId")
	limit, ok := ClampLimit(queryIntDefault(c, "limit", 0))
	if !ok {
		RespondError(c, apperrors.NewValidationError("limit must be between 1 and 100", "limit", c.Query("limit")))
		return
	}

	related, err := h.Upstream.RelatedWorks(c.Request.Context(), paperID, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	papers := make([]PaperDTO, 0, len(related))
	for _, cp := range related {
		papers = append(papers, ToPaperDTO(papercache.FromUpstream(cp)))
	}
	c.JSON(http.StatusOK, papers)
}

// Recommendations serves GET /api/papers/recommendations, delegating to C7.
func (h *PapersHandler) Recommendations(c *gin.Context) {
	limit, ok := ClampLimit(queryIntDefault(c, "limit", 0))
	if !ok {
		RespondError(c, apperrors.NewValidationError("limit must be between 1 and 100", "limit", c.Query("limit")))
		return
	}

	papers, err := h.RecEng.Recommend(c.Request.Context(), principal(c), limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToPaperDTOs(papers))
}

// ParseQuery serves GET /api/papers/parse-query, exposing C4 directly.
func (h *PapersHandler) ParseQuery(c *gin.Context) {
	q := c.Query("q")
	var parsed queryparser.Parsed
	if h.Parser != nil {
		parsed = h.Parser.Parse(q)
	}
	c.JSON(http.StatusOK, gin.H{
		"keywords":     emptyIfNil(parsed.Keywords),
		"authors":      emptyIfNil(parsed.Authors),
		"years":        emptyIfNil(parsed.Years),
		"institutions": emptyIfNil(parsed.Institutions),
	})
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
