package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/agents/cleanup"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/prompts"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

// ErrMalformedValidation means the model reply could not be read as a question list.
var ErrMalformedValidation = errors.New("validator returned malformed content")

const DefaultValidateTemperature = 0.1

type ContentValidator struct {
	log         *logger.Logger
	temperature float64
}

func NewContentValidator(log *logger.Logger, temperature float64) *ContentValidator {
	return &ContentValidator{log: log.With("agent", "ContentValidator"), temperature: temperature}
}

// Validate structures the combined text into questions. On any failure it
// returns an error together with an error-flagged result whose CleanedContent
// is the locally cleaned input.
func (v *ContentValidator) Validate(ctx context.Context, llm openai.Client, combined string) (types.ValidatedContent, error) {
	cleaned := cleanup.Clean(combined)
	flagged := func(err error) (types.ValidatedContent, error) {
		return types.ValidatedContent{CleanedContent: cleaned, Error: err.Error()}, err
	}

	p, err := prompts.Build(prompts.PromptValidateContent, prompts.Input{Content: cleaned})
	if err != nil {
		return flagged(err)
	}
	obj, err := llm.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema, openai.WithTemperature(v.temperature))
	if err != nil {
		v.log.Warn("Validation call failed", "error", err)
		return flagged(fmt.Errorf("validate content: %w", err))
	}
	if _, ok := obj["questionList"]; !ok {
		return flagged(fmt.Errorf("%w: questionList missing", ErrMalformedValidation))
	}

	var out types.ValidatedContent
	if err := decodeInto(obj, &out); err != nil {
		return flagged(fmt.Errorf("%w: %v", ErrMalformedValidation, err))
	}
	if out.QuestionList == nil {
		return flagged(fmt.Errorf("%w: questionList is null", ErrMalformedValidation))
	}
	for i := range out.QuestionList {
		q := &out.QuestionList[i]
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = fmt.Sprintf("Q%d", i+1)
		}
		if q.SubParts == nil {
			q.SubParts = []string{}
		}
	}
	out.TotalQuestions = len(out.QuestionList)
	if strings.TrimSpace(out.CleanedContent) == "" {
		out.CleanedContent = cleaned
	}
	out.Error = ""
	v.log.Info("Content validated", "questions", out.TotalQuestions, "subject", out.Metadata.Subject)
	return out, nil
}
