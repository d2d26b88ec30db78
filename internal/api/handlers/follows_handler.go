package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/models"
)

// FollowsHandler binds §6's follow endpoints onto C3's follow sub-document and C6's
// fan-out engine.
type FollowsHandler struct {
	*Core
}

func NewFollowsHandler(core *Core) *FollowsHandler {
	return &FollowsHandler{Core: core}
}

// List serves GET /api/follows.
func (h *FollowsHandler) List(c *gin.Context) {
	follows, err := h.Users.ListFollows(c.Request.Context(), principal(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	out := make([]FollowDTO, 0, len(follows))
	for _, f := range follows {
		out = append(out, ToFollowDTO(f))
	}
	c.JSON(http.StatusOK, gin.H{"follows": out})
}

type createFollowRequest struct {
	EntityType string `json:"type"`
	EntityID   string `json:"entityId"`
	EntityName string `json:"entityName"`
	UpstreamID string `json:"openalexId"`
}

var validEntityTypes = map[string]bool{
	models.EntityTypeAuthor:      true,
	models.EntityTypeInstitution: true,
	models.EntityTypeTopic:       true,
	models.EntityTypeSource:      true,
	models.EntityTypeCustom:      true,
}

// Create serves POST /api/follows. A repeated follow is treated as idempotent per
// spec.md §9's Open Question, returning 200 with the existing edge instead of 409.
func (h *FollowsHandler) Create(c *gin.Context) {
	var req createFollowRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EntityID == "" || !validEntityTypes[req.EntityType] {
		RespondError(c, apperrors.NewValidationError("type and entityId are required", "type", req.EntityType))
		return
	}

	follow := models.Follow{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		EntityName: req.EntityName,
		UpstreamID: req.UpstreamID,
	}
	result, existed, err := h.Users.Follow(c.Request.Context(), principal(c), follow)
	if err != nil {
		RespondError(c, err)
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"success": true, "follow": ToFollowDTO(result)})
}

// Delete serves DELETE /api/follows/{type}/{entityId}.
func (h *FollowsHandler) Delete(c *gin.Context) {
	err := h.Users.Unfollow(c.Request.Context(), principal(c), c.Param("type"), c.Param("entityId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Papers serves GET /api/follows/papers, delegating to C6's fan-out engine.
func (h *FollowsHandler) Papers(c *gin.Context) {
	perEntityLimit := queryIntDefault(c, "limit_per_entity", 0)
	totalLimit := queryIntDefault(c, "total_limit", 0)

	papers, err := h.FollowEng.Feed(c.Request.Context(), principal(c), perEntityLimit, totalLimit)
	if err != nil {
		RespondError(c, err)
		return
	}
	dtos := ToPaperDTOs(papers)
	c.JSON(http.StatusOK, gin.H{"papers": dtos, "count": len(dtos)})
}
