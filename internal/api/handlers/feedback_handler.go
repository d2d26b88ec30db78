package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/userstore"
)

// FeedbackHandler binds the like/dislike endpoints of §6 onto C3's feedback
// sub-document, upserting any client-supplied paper_data into C2 first (spec.md
// §4.3 rule 7 / §9's "paper_data promoted to a strict request body").
type FeedbackHandler struct {
	*Core
}

func NewFeedbackHandler(core *Core) *FeedbackHandler {
	return &FeedbackHandler{Core: core}
}

type feedbackRequest struct {
	PaperID   string    `json:"paper_id"`
	PaperData *PaperDTO `json:"paper_data,omitempty"`
}

func (h *FeedbackHandler) upsertSnapshot(c *gin.Context, req feedbackRequest) error {
	if req.PaperData == nil {
		return nil
	}
	dto := *req.PaperData
	if dto.PaperID == "" {
		dto.PaperID = req.PaperID
	}
	return h.Cache.Put(c.Request.Context(), FromPaperSnapshot(dto))
}

// Get serves GET /api/feedback.
func (h *FeedbackHandler) Get(c *gin.Context) {
	liked, disliked, err := h.Users.GetFeedback(c.Request.Context(), principal(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"liked":    emptyIfNil(liked),
		"disliked": emptyIfNil(disliked),
	})
}

// Like serves POST /api/feedback/like.
func (h *FeedbackHandler) Like(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PaperID == "" {
		RespondError(c, apperrors.NewValidationError("paper_id is required", "paper_id", req.PaperID))
		return
	}
	if err := h.upsertSnapshot(c, req); err != nil {
		RespondError(c, err)
		return
	}
	if err := h.Users.Like(c.Request.Context(), principal(c), req.PaperID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Unlike serves DELETE /api/feedback/like/{paperId}.
func (h *FeedbackHandler) Unlike(c *gin.Context) {
	if err := h.Users.Unlike(c.Request.Context(), principal(c), c.Param("paperId")); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Dislike serves POST /api/feedback/dislike.
func (h *FeedbackHandler) Dislike(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PaperID == "" {
		RespondError(c, apperrors.NewValidationError("paper_id is required", "paper_id", req.PaperID))
		return
	}
	if err := h.upsertSnapshot(c, req); err != nil {
		RespondError(c, err)
		return
	}
	if err := h.Users.Dislike(c.Request.Context(), principal(c), req.PaperID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Undislike serves DELETE /api/feedback/dislike/{paperId}.
func (h *FeedbackHandler) Undislike(c *gin.Context) {
	if err := h.Users.Undislike(c.Request.Context(), principal(c), c.Param("paperId")); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ClearAll serves DELETE /api/feedback.
func (h *FeedbackHandler) ClearAll(c *gin.Context) {
	h.clear(c, userstore.FeedbackAll)
}

// ClearLiked serves DELETE /api/feedback/liked.
func (h *FeedbackHandler) ClearLiked(c *gin.Context) {
	h.clear(c, userstore.FeedbackLiked)
}

// ClearDisliked serves DELETE /api/feedback/disliked.
func (h *FeedbackHandler) ClearDisliked(c *gin.Context) {
	h.clear(c, userstore.FeedbackDisliked)
}

func (h *FeedbackHandler) clear(c *gin.Context, which userstore.FeedbackKind) {
	if err := h.Users.ClearFeedback(c.Request.Context(), principal(c), which); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
