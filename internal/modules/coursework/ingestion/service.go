package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursework-backend/internal/data/repos"
	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/ingestion/extractor"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

type Deps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Assignments repos.AssignmentRepo
	Materials   repos.RawMaterialRepo
	Documents   repos.ExtractedDocumentRepo
	Extractor   *extractor.Extractor
	// Uploads receives material bytes sent through the API. Nil disables uploads.
	Uploads Uploader
}

type Service struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) *Service {
	return &Service{deps: deps, log: deps.Log.With("service", "IngestionService")}
}

type ExtractResult struct {
	RunID        uuid.UUID
	CombinedText string
	MethodsUsed  []types.Technique
	Documents    []*types.ExtractedDocument
}

// ExtractAndPersist runs the extractor over the assignment's materials and
// stores one document row per file under a fresh run ID. vision may be nil.
func (s *Service) ExtractAndPersist(ctx context.Context, assignmentID, userID uuid.UUID, vision openai.Client) (*ExtractResult, error) {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	a, err := s.deps.Assignments.GetForUser(dbc, assignmentID, userID)
	if err != nil {
		return nil, err
	}
	mats, err := s.deps.Materials.ListByAssignment(dbc, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}

	out := s.deps.Extractor.Extract(ctx, extractor.Input{
		Title:       a.Title,
		Description: a.Description,
		Materials:   mats,
		Vision:      vision,
	})

	runID := uuid.New()
	rows := make([]*types.ExtractedDocument, 0, len(out.Documents))
	for i, r := range out.Documents {
		rows = append(rows, &types.ExtractedDocument{
			AssignmentID:  a.ID,
			RunID:         runID,
			RawMaterialID: r.Material.ID,
			Position:      i,
			Title:         r.Material.Title,
			Technique:     r.Technique,
			Status:        r.Status,
			Text:          r.Text,
			Warning:       r.Warning,
		})
	}
	if len(rows) > 0 {
		if rows, err = s.deps.Documents.Create(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, rows); err != nil {
			return nil, fmt.Errorf("persist extracted documents: %w", err)
		}
	}

	for _, r := range rows {
		observability.Current().IncExtractedFile(string(r.Technique), string(r.Status))
	}
	s.log.Info("Assignment extracted",
		"assignment_id", a.ID,
		"run_id", runID,
		"files", len(mats),
		"methods", out.MethodsUsed,
		"chars", len(out.CombinedText),
	)
	return &ExtractResult{
		RunID:        runID,
		CombinedText: out.CombinedText,
		MethodsUsed:  out.MethodsUsed,
		Documents:    rows,
	}, nil
}

// CombinedContent rebuilds the combined text from the latest extraction run.
// An assignment without attachments needs no run; its title and description are the content.
func (s *Service) CombinedContent(ctx context.Context, assignmentID, userID uuid.UUID) (*types.Assignment, string, error) {
	dbc := dbctx.Context{Ctx: ctxutil.Default(ctx)}
	a, err := s.deps.Assignments.GetForUser(dbc, assignmentID, userID)
	if err != nil {
		return nil, "", err
	}
	docs, err := s.deps.Documents.ListLatestRun(dbc, a.ID)
	if err != nil {
		return nil, "", fmt.Errorf("load extracted documents: %w", err)
	}
	if len(docs) == 0 {
		mats, err := s.deps.Materials.ListByAssignment(dbc, a.ID)
		if err != nil {
			return nil, "", fmt.Errorf("list materials: %w", err)
		}
		if len(mats) > 0 {
			return a, "", types.ErrContentNotExtracted
		}
	}

	results := make([]extractor.Result, 0, len(docs))
	for _, d := range docs {
		results = append(results, extractor.Result{
			Material:  &types.RawMaterial{ID: d.RawMaterialID, Title: d.Title},
			Status:    d.Status,
			Technique: d.Technique,
			Text:      d.Text,
			Warning:   d.Warning,
		})
	}
	return a, extractor.Combine(a.Title, a.Description, results), nil
}
