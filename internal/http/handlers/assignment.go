package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/http/middleware"
	"github.com/yungbote/coursework-backend/internal/http/response"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/ingestion"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/pipeline"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/gcp"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

type AssignmentService interface {
	SaveAssignment(ctx context.Context, a *types.Assignment, materials []*types.RawMaterial) (*types.Assignment, []*types.RawMaterial, error)
	UploadMaterial(ctx context.Context, assignmentID, userID, materialID uuid.UUID, contentType string, body io.Reader) (*types.RawMaterial, error)
	ExtractAndPersist(ctx context.Context, assignmentID, userID uuid.UUID, vision openai.Client) (*ingestion.ExtractResult, error)
	CombinedContent(ctx context.Context, assignmentID, userID uuid.UUID) (*types.Assignment, string, error)
}

type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type ArtifactStore interface {
	Save(ctx context.Context, assignmentID, userID uuid.UUID, mode types.Mode, title, content string, metadata map[string]any) (*types.Artifact, error)
}

type AssignmentHandler struct {
	log       *logger.Logger
	svc       AssignmentService
	llm       openai.Factory
	pipeline  PipelineRunner
	artifacts ArtifactStore
}

func NewAssignmentHandler(log *logger.Logger, svc AssignmentService, llm openai.Factory, p PipelineRunner, artifacts ArtifactStore) *AssignmentHandler {
	return &AssignmentHandler{
		log:       log.With("handler", "AssignmentHandler"),
		svc:       svc,
		llm:       llm,
		pipeline:  p,
		artifacts: artifacts,
	}
}

type materialReq struct {
	ExternalFileID string `json:"external_file_id"`
	Title          string `json:"title" binding:"required"`
	MimeType       string `json:"mime_type"`
	StorageKey     string `json:"storage_key"`
	SizeBytes      int64  `json:"size_bytes"`
}

type upsertAssignmentReq struct {
	ExternalID  string        `json:"external_id"`
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Materials   []materialReq `json:"materials" binding:"dive"`
}

// POST /api/assignments
func (h *AssignmentHandler) Upsert(c *gin.Context) {
	var req upsertAssignmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mats := make([]*types.RawMaterial, 0, len(req.Materials))
	for _, m := range req.Materials {
		mats = append(mats, &types.RawMaterial{
			ExternalFileID: m.ExternalFileID,
			Title:          m.Title,
			MimeType:       m.MimeType,
			StorageKey:     m.StorageKey,
			SizeBytes:      m.SizeBytes,
		})
	}
	a, rows, err := h.svc.SaveAssignment(c.Request.Context(), &types.Assignment{
		UserID:      ctxutil.UserID(c.Request.Context()),
		ExternalID:  req.ExternalID,
		Title:       req.Title,
		Description: req.Description,
	}, mats)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": a, "materials": rows})
}

// PUT /api/assignments/:id/materials/:materialId/content
// The raw request body is the file; Content-Type is stored as its mime type.
func (h *AssignmentHandler) UploadMaterial(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	mid, err := uuid.Parse(c.Param("materialId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_material_id", err)
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, gcp.DefaultMaxObjectBytes)
	m, err := h.svc.UploadMaterial(c.Request.Context(), aid, uid, mid, c.ContentType(), body)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"material": m})
}

type documentView struct {
	Title     string                 `json:"title"`
	Technique types.Technique        `json:"technique,omitempty"`
	Status    types.ExtractionStatus `json:"status"`
	Warning   string                 `json:"warning,omitempty"`
	Chars     int                    `json:"chars"`
}

// POST /api/assignments/:id/extract
// Without a vision key PDFs are recorded as skipped with a placeholder.
func (h *AssignmentHandler) Extract(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	var vision openai.Client
	if key := middleware.VisionKey(c); key != "" {
		v, err := h.llm.ForVision(key)
		if err != nil {
			respondErr(c, err)
			return
		}
		vision = v
	}
	res, err := h.svc.ExtractAndPersist(c.Request.Context(), aid, uid, vision)
	if err != nil {
		respondErr(c, err)
		return
	}
	docs := make([]documentView, 0, len(res.Documents))
	for _, d := range res.Documents {
		docs = append(docs, documentView{Title: d.Title, Technique: d.Technique, Status: d.Status, Warning: d.Warning, Chars: len(d.Text)})
	}
	response.RespondOK(c, gin.H{
		"run_id":        res.RunID,
		"combined_text": res.CombinedText,
		"methods_used":  res.MethodsUsed,
		"documents":     docs,
	})
}

type runPipelineReq struct {
	Explain bool `json:"explain"`
}

// POST /api/assignments/:id/pipeline
// The rendered HTML is saved as the explain artifact, or as the draft when solving.
// A degraded run is returned unsaved.
func (h *AssignmentHandler) RunPipeline(c *gin.Context) {
	aid, uid, ok := owner(c)
	if !ok {
		return
	}
	var req runPipelineReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	ctx := c.Request.Context()
	a, content, err := h.svc.CombinedContent(ctx, aid, uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	res, err := h.pipeline.Run(ctx, pipeline.Request{
		Credential: middleware.LLMKey(c),
		Title:      a.Title,
		Combined:   content,
		Explain:    req.Explain,
	})
	if err != nil {
		h.log.Warn("Pipeline run failed", "assignment_id", aid, "state", res.State, "error", err)
		respondErr(c, err)
		return
	}

	out := gin.H{
		"state":           res.State,
		"trace":           res.Trace,
		"subject":         res.Validated.Metadata.Subject,
		"topics":          res.Validated.Metadata.Topics,
		"total_questions": res.Validated.TotalQuestions,
		"total_solved":    res.Solve.TotalSolved,
		"failed_batches":  res.Solve.FailedBatches,
		"html":            res.HTML,
		"degraded":        res.Degraded,
		"artifact":        nil,
	}
	// An error fragment is shown once and never replaces a stored document.
	if res.Degraded {
		h.log.Warn("Pipeline output not saved", "assignment_id", aid, "explain", req.Explain)
		response.RespondOK(c, out)
		return
	}

	mode := types.ModeDraft
	if req.Explain {
		mode = types.ModeExplain
	}
	art, err := h.artifacts.Save(ctx, aid, uid, mode, a.Title, res.HTML, map[string]any{
		"source":          "pipeline",
		"subject":         res.Validated.Metadata.Subject,
		"total_questions": res.Validated.TotalQuestions,
		"failed_batches":  res.Solve.FailedBatches,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	out["artifact"] = art
	out["html"] = art.Content
	response.RespondOK(c, out)
}
