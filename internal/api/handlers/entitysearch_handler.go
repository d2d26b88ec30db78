package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
)

// EntitySearchHandler binds GET /api/entity-search/{kind} onto C1's searchEntities,
// used by the client's follow UI to resolve a free-text name to an upstream id.
type EntitySearchHandler struct {
	*Core
}

func NewEntitySearchHandler(core *Core) *EntitySearchHandler {
	return &EntitySearchHandler{Core: core}
}

type entityResultDTO struct {
	ID           string `json:"id"`
	UpstreamID   string `json:"upstreamId"`
	Name         string `json:"name"`
	WorksCount   int    `json:"worksCount"`
	CitedByCount int    `json:"citedByCount"`
}

// Search serves GET /api/entity-search/{kind}?q=&limit=.
func (h *EntitySearchHandler) Search(c *gin.Context) {
	kind := c.Param("kind")
	q := c.Query("q")
	limit, ok := ClampLimit(queryIntDefault(c, "limit", 0))
	if !ok {
		RespondError(c, apperrors.NewValidationError("limit must be between 1 and 100", "limit", c.Query("limit")))
		return
	}

	entities, err := h.Upstream.SearchEntities(c.Request.Context(), kind, q, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	out := make([]entityResultDTO, 0, len(entities))
	for _, e := range entities {
		out = append(out, entityResultDTO{
			ID:           e.ID,
			UpstreamID:   e.UpstreamID,
			Name:         e.Name,
			WorksCount:   e.WorksCount,
			CitedByCount: e.CitedByCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
