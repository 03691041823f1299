package agents

import (
	"context"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/prompts"
	"github.com/yungbote/coursework-backend/internal/platform/llmerr"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

// Reviewer formats solutions into one HTML document. It never returns an error;
// failures come back as an error fragment with ok false.
type Reviewer struct {
	log         *logger.Logger
	temperature *float64
}

func NewReviewer(log *logger.Logger, temperature *float64) *Reviewer {
	return &Reviewer{log: log.With("agent", "Reviewer"), temperature: temperature}
}

func (r *Reviewer) Review(ctx context.Context, llm openai.Client, title string, questions []types.Question, solutions []types.SolvedQuestion) (doc string, ok bool) {
	p, err := prompts.Build(prompts.PromptReviewSolutions, prompts.Input{
		Title:         title,
		QuestionsJSON: mustJSON(questions),
		SolutionsJSON: mustJSON(solutions),
	})
	if err != nil {
		return ErrorFragment("Could not prepare the solution document: %v", err), false
	}
	out, err := llm.GenerateText(ctx, p.System, p.User, temperatureOpts(r.temperature)...)
	if err != nil {
		r.log.Warn("Review call failed", "error", err)
		return ErrorFragment("Could not format the solutions: %s", llmerr.Classify(err).UserMessage()), false
	}
	return StripCodeFences(out), true
}

func temperatureOpts(t *float64) []openai.CallOption {
	if t == nil {
		return nil
	}
	return []openai.CallOption{openai.WithTemperature(*t)}
}
