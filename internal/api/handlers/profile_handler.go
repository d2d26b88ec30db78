package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
)

// ProfileHandler binds GET/PUT/DELETE /api/profile onto C3's profile sub-document.
type ProfileHandler struct {
	*Core
}

func NewProfileHandler(core *Core) *ProfileHandler {
	return &ProfileHandler{Core: core}
}

type putProfileRequest struct {
	Topics  []string `json:"topics"`
	Authors []string `json:"authors"`
}

// Get serves GET /api/profile, embedding the user's folders per §6.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := principal(c)
	ctx := c.Request.Context()

	profile, err := h.Users.GetProfile(ctx, userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	folders, err := h.Users.ListFolders(ctx, userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	folderDTOs := make([]FolderDTO, 0, len(folders))
	for _, f := range folders {
		folderDTOs = append(folderDTOs, ToFolderDTO(f, nil))
	}

	c.JSON(http.StatusOK, gin.H{
		"topics":  emptyIfNil(profile.Topics),
		"authors": emptyIfNil(profile.Authors),
		"folders": folderDTOs,
	})
}

// Put serves PUT /api/profile.
func (h *ProfileHandler) Put(c *gin.Context) {
	var req putProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperrors.NewValidationError("invalid profile body", "body", err.Error()))
		return
	}
	if err := h.Users.PutProfile(c.Request.Context(), principal(c), req.Topics, req.Authors); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete serves DELETE /api/profile.
func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.Users.ClearProfile(c.Request.Context(), principal(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
