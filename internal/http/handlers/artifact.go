package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/http/middleware"
	"github.com/yungbote/coursework-backend/internal/http/response"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/modes"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type ContentSource interface {
	CombinedContent(ctx context.Context, assignmentID, userID uuid.UUID) (*types.Assignment, string, error)
}

type ArtifactService interface {
	Generate(ctx context.Context, req modes.Request) (*types.Artifact, bool, error)
	Get(ctx context.Context, assignmentID, userID uuid.UUID, mode types.Mode) (*types.Artifact, error)
	SetDraftOverride(ctx context.Context, assignmentID, userID uuid.UUID, content string) (*types.Artifact, error)
	ClearDraftOverride(ctx context.Context, assignmentID, userID uuid.UUID) (*types.Artifact, error)
	DiffDraft(ctx context.Context, assignmentID, userID uuid.UUID) (*modes.DraftDiff, error)
}

type ArtifactHandler struct {
	log     *logger.Logger
	content ContentSource
	svc     ArtifactService
}

func NewArtifactHandler(log *logger.Logger, content ContentSource, svc ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{log: log.With("handler", "ArtifactHandler"), content: content, svc: svc}
}

type generateReq struct {
	Count int  `json:"count"`
	Force bool `json:"force"`
}

func artifactView(art *types.Artifact) gin.H {
	return gin.H{"artifact": art, "content": art.EffectiveContent()}
}

// POST /api/assignments/:id/artifacts/:mode
func (h *ArtifactHandler) Generate(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	var req generateReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	mode := types.Mode(c.Param("mode"))
	if !mode.Valid() {
		respondErr(c, modes.ErrUnknownMode)
		return
	}
	ctx := c.Request.Context()
	a, content, err := h.content.CombinedContent(ctx, aid, uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	art, generated, err := h.svc.Generate(ctx, modes.Request{
		AssignmentID: aid,
		UserID:       uid,
		Title:        a.Title,
		Description:  a.Description,
		Content:      content,
		Mode:         mode,
		Count:        req.Count,
		Force:        req.Force,
		Credential:   middleware.LLMKey(c),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	out := artifactView(art)
	out["generated"] = generated
	response.RespondOK(c, out)
}

// GET /api/assignments/:id/artifacts/:mode
func (h *ArtifactHandler) Get(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	art, err := h.svc.Get(c.Request.Context(), aid, uid, types.Mode(c.Param("mode")))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, artifactView(art))
}

type overrideReq struct {
	Content string `json:"content" binding:"required"`
}

// PUT /api/assignments/:id/artifacts/draft/override
func (h *ArtifactHandler) SetOverride(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	var req overrideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	art, err := h.svc.SetDraftOverride(c.Request.Context(), aid, uid, req.Content)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, artifactView(art))
}

// DELETE /api/assignments/:id/artifacts/draft/override
func (h *ArtifactHandler) ClearOverride(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	art, err := h.svc.ClearDraftOverride(c.Request.Context(), aid, uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, artifactView(art))
}

// GET /api/assignments/:id/artifacts/draft/diff
func (h *ArtifactHandler) DraftDiff(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	d, err := h.svc.DiffDraft(c.Request.Context(), aid, uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, d)
}
