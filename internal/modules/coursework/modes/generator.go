// Package modes generates and stores the per-user study artifacts.
package modes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursework-backend/internal/data/repos"
	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/agents"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/prompts"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

// MinContentChars is the shortest trimmed content, in characters, worth sending to the model.
const MinContentChars = 20

type Request struct {
	AssignmentID uuid.UUID
	UserID       uuid.UUID
	Title        string
	Description  string
	Content      string
	Mode         types.Mode
	// Count is the number of quiz questions; ignored by other modes.
	Count int
	// Force regenerates even when an artifact already exists.
	Force bool
	// Credential is only resolved when a model call is needed.
	Credential string
}

type Generator struct {
	log       *logger.Logger
	llm       openai.Factory
	artifacts repos.ArtifactRepo
}

func NewGenerator(log *logger.Logger, llm openai.Factory, artifacts repos.ArtifactRepo) *Generator {
	return &Generator{log: log.With("service", "ModeGenerator"), llm: llm, artifacts: artifacts}
}

// Generate returns the stored artifact unless Force is set or none exists, in
// which case it calls the model and saves a new version. generated reports
// whether a model call happened.
func (g *Generator) Generate(ctx context.Context, req Request) (art *types.Artifact, generated bool, err error) {
	ctx = ctxutil.Default(ctx)
	if !req.Mode.Valid() {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	if req.Mode == types.ModeQuiz && req.Count < 1 {
		return nil, false, ErrQuizCountRequired
	}

	dbc := dbctx.Context{Ctx: ctx}
	existing, err := g.artifacts.Get(dbc, req.AssignmentID, req.UserID, req.Mode)
	if err != nil {
		return nil, false, fmt.Errorf("load artifact: %w", err)
	}
	if existing != nil && !req.Force {
		return existing, false, nil
	}

	content := prompts.CapContent(strings.TrimSpace(req.Content), prompts.MaxContentChars)
	if utf8.RuneCountInString(content) < MinContentChars {
		return nil, false, ErrContentTooShort
	}
	llm, err := g.llm.ForKey(req.Credential)
	if err != nil {
		return nil, false, err
	}

	in := prompts.Input{Title: req.Title, Description: req.Description, Content: content, Count: req.Count}
	body, p, err := g.render(ctx, llm, req.Mode, in)
	if err != nil {
		observability.Current().IncArtifact(string(req.Mode), "error")
		return nil, false, err
	}

	// Persist past a client disconnect; the model call is already paid for.
	art, err = g.persist(context.WithoutCancel(ctx), req.AssignmentID, req.UserID, req.Mode, existing, body, map[string]any{
		"prompt":             p.Name,
		"prompt_version":     p.Version,
		"prompt_fingerprint": p.Fingerprint(),
		"count":              req.Count,
	})
	if err != nil {
		return nil, true, err
	}
	observability.Current().IncArtifact(string(req.Mode), "generated")
	g.log.Info("Artifact generated", "assignment_id", req.AssignmentID, "mode", req.Mode, "version", art.Version)
	return art, true, nil
}

func (g *Generator) render(ctx context.Context, llm openai.Client, mode types.Mode, in prompts.Input) (string, prompts.Prompt, error) {
	name := map[types.Mode]prompts.PromptName{
		types.ModeExplain:    prompts.PromptModeExplain,
		types.ModeQuiz:       prompts.PromptModeQuiz,
		types.ModeFlashcards: prompts.PromptModeFlashcards,
		types.ModeDraft:      prompts.PromptModeDraft,
	}[mode]
	p, err := prompts.Build(name, in)
	if err != nil {
		return "", p, err
	}
	fail := func(reason string, err error) (string, prompts.Prompt, error) {
		g.log.Warn("Artifact generation failed", "mode", mode, "reason", reason, "error", err)
		return "", p, &GenerationError{Mode: mode, Reason: reason, Err: err}
	}

	switch mode {
	case types.ModeQuiz, types.ModeFlashcards:
		obj, err := llm.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
		if err != nil {
			return fail("model call failed", err)
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return fail("reply not encodable", err)
		}
		if mode == types.ModeQuiz {
			q, err := decodeQuiz(raw, in.Count)
			if err != nil {
				return fail("invalid quiz", err)
			}
			raw, _ = json.Marshal(q)
		} else {
			var f types.FlashcardPayload
			if err := json.Unmarshal(raw, &f); err != nil {
				return fail("reply is not a flashcard set", err)
			}
			if err := validateFlashcards(f); err != nil {
				return fail("invalid flashcards", err)
			}
			raw, _ = json.Marshal(f)
		}
		return string(raw), p, nil

	default:
		out, err := llm.GenerateText(ctx, p.System, p.User)
		if err != nil {
			return fail("model call failed", err)
		}
		out = agents.StripCodeFences(out)
		if mode == types.ModeDraft {
			out, err = normalizeDraft(in.Title, out)
		} else {
			out, err = cleanExplain(out)
		}
		if err != nil {
			return fail("unparseable html", err)
		}
		if strings.TrimSpace(out) == "" {
			return fail("empty document", nil)
		}
		return out, p, nil
	}
}

// Save stores externally produced content, such as a pipeline run, as the
// next version of the mode's artifact. HTML passes through the same cleanup
// as generated documents, so a saved draft opens with the title.
func (g *Generator) Save(ctx context.Context, assignmentID, userID uuid.UUID, mode types.Mode, title, content string, metadata map[string]any) (*types.Artifact, error) {
	ctx = ctxutil.Default(ctx)
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	body, err := normalizeSaved(mode, title, content)
	if err != nil {
		return nil, &GenerationError{Mode: mode, Reason: "unsaveable content", Err: err}
	}
	existing, err := g.artifacts.Get(dbctx.Context{Ctx: ctx}, assignmentID, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return g.persist(context.WithoutCancel(ctx), assignmentID, userID, mode, existing, body, metadata)
}

func normalizeSaved(mode types.Mode, title, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("empty document")
	}
	switch mode {
	case types.ModeDraft:
		return normalizeDraft(title, content)
	case types.ModeExplain:
		return cleanExplain(content)
	}
	return content, nil
}

func (g *Generator) persist(ctx context.Context, assignmentID, userID uuid.UUID, mode types.Mode, existing *types.Artifact, body string, metadata map[string]any) (*types.Artifact, error) {
	meta, _ := json.Marshal(metadata)
	dbc := dbctx.Context{Ctx: ctx}
	var (
		art *types.Artifact
		err error
	)
	if existing == nil {
		art, err = g.artifacts.Create(dbc, &types.Artifact{
			AssignmentID: assignmentID,
			UserID:       userID,
			Mode:         mode,
			Format:       mode.Format(),
			Content:      body,
			Metadata:     datatypes.JSON(meta),
		})
	} else {
		art, err = g.artifacts.ReplaceContent(dbc, existing.ID, existing.Version, body, datatypes.JSON(meta))
	}
	if errors.Is(err, types.ErrVersionConflict) {
		g.log.Info("Artifact changed during generation", "assignment_id", assignmentID, "mode", mode)
	}
	return art, err
}

// Get returns the stored artifact or ErrNotFound.
func (g *Generator) Get(ctx context.Context, assignmentID, userID uuid.UUID, mode types.Mode) (*types.Artifact, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	art, err := g.artifacts.Get(dbctx.Context{Ctx: ctxutil.Default(ctx)}, assignmentID, userID, mode)
	if err != nil {
		return nil, err
	}
	if art == nil {
		return nil, types.ErrNotFound
	}
	return art, nil
}

// SetDraftOverride stores a hand-edited draft that wins over generated content.
func (g *Generator) SetDraftOverride(ctx context.Context, assignmentID, userID uuid.UUID, content string) (*types.Artifact, error) {
	return g.setOverride(ctx, assignmentID, userID, &content)
}

func (g *Generator) ClearDraftOverride(ctx context.Context, assignmentID, userID uuid.UUID) (*types.Artifact, error) {
	return g.setOverride(ctx, assignmentID, userID, nil)
}

func (g *Generator) setOverride(ctx context.Context, assignmentID, userID uuid.UUID, content *string) (*types.Artifact, error) {
	art, err := g.Get(ctx, assignmentID, userID, types.ModeDraft)
	if err != nil {
		return nil, err
	}
	return g.artifacts.SetOverride(dbctx.Context{Ctx: ctxutil.Default(ctx)}, art.ID, content)
}
