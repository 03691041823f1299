package agents

import (
	"context"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/prompts"
	"github.com/yungbote/coursework-backend/internal/platform/llmerr"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

// ExplainGuide writes a study guide over validated content without solving it.
// Like Reviewer, a failure yields an error fragment and ok false.
type ExplainGuide struct {
	log         *logger.Logger
	temperature *float64
}

func NewExplainGuide(log *logger.Logger, temperature *float64) *ExplainGuide {
	return &ExplainGuide{log: log.With("agent", "ExplainGuide"), temperature: temperature}
}

func (e *ExplainGuide) Write(ctx context.Context, llm openai.Client, title string, vc types.ValidatedContent) (doc string, ok bool) {
	p, err := prompts.Build(prompts.PromptExplainGuide, prompts.Input{
		Title:         title,
		ValidatedJSON: mustJSON(vc),
	})
	if err != nil {
		return ErrorFragment("Could not prepare the study guide: %v", err), false
	}
	out, err := llm.GenerateText(ctx, p.System, p.User, temperatureOpts(e.temperature)...)
	if err != nil {
		e.log.Warn("Explain guide call failed", "error", err)
		return ErrorFragment("Could not write the study guide: %s", llmerr.Classify(err).UserMessage()), false
	}
	return StripCodeFences(out), true
}
