package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
)

// FoldersHandler binds §6's folder endpoints onto C3's folder sub-document.
type FoldersHandler struct {
	*Core
}

func NewFoldersHandler(core *Core) *FoldersHandler {
	return &FoldersHandler{Core: core}
}

// List serves GET /api/folders.
func (h *FoldersHandler) List(c *gin.Context) {
	folders, err := h.Users.ListFolders(c.Request.Context(), principal(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	out := make([]FolderDTO, 0, len(folders))
	for _, f := range folders {
		out = append(out, ToFolderDTO(f, nil))
	}
	c.JSON(http.StatusOK, out)
}

type createFolderRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Create serves POST /api/folders.
func (h *FoldersHandler) Create(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		RespondError(c, apperrors.NewValidationError("name is required", "name", req.Name))
		return
	}
	folder, err := h.Users.CreateFolder(c.Request.Context(), principal(c), req.Name, req.Description)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ToFolderDTO(*folder, nil))
}

// Get serves GET /api/folders/{folderId}, embedding resolved paper snapshots.
func (h *FoldersHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	folder, err := h.Users.GetFolder(ctx, principal(c), c.Param("folderId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	papers, err := h.Cache.GetMany(ctx, folder.PaperIDs)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToFolderDTO(*folder, papers))
}

// Delete serves DELETE /api/folders/{folderId}.
func (h *FoldersHandler) Delete(c *gin.Context) {
	if err := h.Users.DeleteFolder(c.Request.Context(), principal(c), c.Param("folderId")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addPaperRequest struct {
	PaperID   string    `json:"paper_id"`
	PaperData *PaperDTO `json:"paper_data"`
}

// AddPaper serves POST /api/folders/{folderId}/papers.
func (h *FoldersHandler) AddPaper(c *gin.Context) {
	var req addPaperRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PaperID == "" {
		RespondError(c, apperrors.NewValidationError("paper_id is required", "paper_id", req.PaperID))
		return
	}
	ctx := c.Request.Context()
	if req.PaperData != nil {
		dto := *req.PaperData
		if dto.PaperID == "" {
			dto.PaperID = req.PaperID
		}
		if err := h.Cache.Put(ctx, FromPaperSnapshot(dto)); err != nil {
			RespondError(c, err)
			return
		}
	}
	if err := h.Users.AddPaperToFolder(ctx, principal(c), c.Param("folderId"), req.PaperID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RemovePaper serves DELETE /api/folders/{folderId}/papers/{paperId}.
func (h *FoldersHandler) RemovePaper(c *gin.Context) {
	err := h.Users.RemovePaperFromFolder(c.Request.Context(), principal(c), c.Param("folderId"), c.Param("paperId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
