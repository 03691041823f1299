// Package chat answers questions about one assignment, buffered or streamed.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursework-backend/internal/data/repos"
	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/prompts"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/llmerr"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
	"github.com/yungbote/coursework-backend/internal/realtime"
)

const (
	// MaxContextChars caps the assignment text sent with every question.
	MaxContextChars = prompts.MaxContentChars
	// promptTurns is how much recent history accompanies a question.
	promptTurns = 20

	WelcomeMessage = "Hi! I've read through this assignment's materials. Ask me about any question, concept or where to start."
)

var ErrEmptyQuestion = errors.New("question is empty")

// ContentSource supplies the assignment and its combined extracted text.
type ContentSource interface {
	CombinedContent(ctx context.Context, assignmentID, userID uuid.UUID) (*types.Assignment, string, error)
}

type Deps struct {
	Log     *logger.Logger
	LLM     openai.Factory
	Turns   repos.ChatTurnRepo
	Content ContentSource
	Cancels *CancelRegistry
}

type Session struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) *Session {
	if deps.Cancels == nil {
		deps.Cancels = NewCancelRegistry(deps.Log, nil)
	}
	return &Session{deps: deps, log: deps.Log.With("service", "ChatSession")}
}

// History returns the session's turns, seeding the welcome turn on first use.
func (s *Session) History(ctx context.Context, k Key) ([]*types.ChatTurn, error) {
	dbc := dbctx.Context{Ctx: ctxutil.Default(ctx)}
	turns, err := s.deps.Turns.List(dbc, k.AssignmentID, k.UserID, 0)
	if err != nil {
		return nil, err
	}
	if len(turns) > 0 {
		return turns, nil
	}
	welcome, err := s.appendTurn(ctx, k, types.RoleAssistant, WelcomeMessage, types.TurnComplete)
	if err != nil {
		return nil, err
	}
	return []*types.ChatTurn{welcome}, nil
}

// Clear deletes the history and reseeds the welcome turn.
func (s *Session) Clear(ctx context.Context, k Key) ([]*types.ChatTurn, error) {
	if err := s.deps.Turns.DeleteAll(dbctx.Context{Ctx: ctxutil.Default(ctx)}, k.AssignmentID, k.UserID); err != nil {
		return nil, fmt.Errorf("clear chat: %w", err)
	}
	return s.History(ctx, k)
}

// Cancel stops an in-flight stream for the session.
func (s *Session) Cancel(ctx context.Context, k Key) (bool, error) {
	return s.deps.Cancels.Cancel(ctxutil.Default(ctx), k)
}

type prepared struct {
	llm    openai.Client
	prompt prompts.Prompt
}

// prepare records the user turn and builds the prompt from the history before it.
func (s *Session) prepare(ctx context.Context, k Key, credential, question string) (*prepared, error) {
	history, err := s.deps.Turns.List(dbctx.Context{Ctx: ctx}, k.AssignmentID, k.UserID, promptTurns)
	if err != nil {
		return nil, err
	}
	if _, err := s.appendTurn(ctx, k, types.RoleUser, question, types.TurnComplete); err != nil {
		return nil, err
	}

	llm, err := s.deps.LLM.ForKey(credential)
	if err != nil {
		return nil, err
	}
	a, content, err := s.deps.Content.CombinedContent(ctx, k.AssignmentID, k.UserID)
	if err != nil {
		return nil, err
	}
	p, err := prompts.Build(prompts.PromptChatAnswer, prompts.Input{
		Title:       a.Title,
		Content:     prompts.CapContent(content, MaxContextChars),
		HistoryText: historyText(history),
		Question:    question,
	})
	if err != nil {
		return nil, err
	}
	return &prepared{llm: llm, prompt: p}, nil
}

// Ask answers in one call. On failure the classified message is stored as an
// assistant turn with status error and returned together with the error.
func (s *Session) Ask(ctx context.Context, k Key, credential, question string) (*types.ChatTurn, error) {
	ctx = ctxutil.Default(ctx)
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	p, err := s.prepare(ctx, k, credential, question)
	if err != nil {
		return s.failTurn(ctx, k, err)
	}
	answer, err := p.llm.GenerateText(ctx, p.prompt.System, p.prompt.User)
	if err != nil {
		return s.failTurn(ctx, k, err)
	}
	observability.Current().IncChatAnswer("buffered", types.TurnComplete)
	return s.appendTurn(ctx, k, types.RoleAssistant, strings.TrimSpace(answer), types.TurnComplete)
}

type chunk struct {
	delta string
	err   error
}

// Stream answers incrementally through emit. Deltas are sent as content
// frames; completion sends done. A cancel, or an emit failure, commits the
// text received so far as a partial turn and still ends with done. Failures
// are stored as an error turn and sent as an error frame.
func (s *Session) Stream(ctx context.Context, k Key, credential, question string, emit func(realtime.Frame) error) (*types.ChatTurn, error) {
	ctx = ctxutil.Default(ctx)
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := s.deps.Cancels.Register(k, cancel)
	defer release()

	p, err := s.prepare(streamCtx, k, credential, question)
	if err != nil {
		return s.failStream(ctx, k, err, emit)
	}

	chunks := make(chan chunk, 64)
	go func() {
		defer close(chunks)
		_, err := p.llm.StreamText(streamCtx, p.prompt.System, p.prompt.User, func(delta string) {
			select {
			case chunks <- chunk{delta: delta}:
			case <-streamCtx.Done():
			}
		})
		if err != nil {
			select {
			case chunks <- chunk{err: err}:
			case <-streamCtx.Done():
			}
		}
	}()

	var buf strings.Builder
	for {
		select {
		case <-streamCtx.Done():
			return s.finishPartial(ctx, k, buf.String(), emit)
		case c, ok := <-chunks:
			if !ok {
				turn, err := s.appendTurn(ctx, k, types.RoleAssistant, buf.String(), types.TurnComplete)
				if err != nil {
					return nil, err
				}
				_ = emit(realtime.DoneFrame())
				observability.Current().IncChatAnswer("stream", types.TurnComplete)
				return turn, nil
			}
			if c.err != nil {
				if streamCtx.Err() != nil {
					return s.finishPartial(ctx, k, buf.String(), emit)
				}
				return s.failStream(ctx, k, c.err, emit)
			}
			if c.delta == "" {
				continue
			}
			buf.WriteString(c.delta)
			if err := emit(realtime.ContentFrame(c.delta)); err != nil {
				s.log.Info("Chat client went away mid-stream", "error", err)
				cancel()
				return s.finishPartial(ctx, k, buf.String(), emit)
			}
		}
	}
}

// finishPartial keeps whatever arrived before the stream stopped.
func (s *Session) finishPartial(ctx context.Context, k Key, text string, emit func(realtime.Frame) error) (*types.ChatTurn, error) {
	var turn *types.ChatTurn
	if strings.TrimSpace(text) != "" {
		var err error
		turn, err = s.appendTurn(ctx, k, types.RoleAssistant, text, types.TurnPartial)
		if err != nil {
			return nil, err
		}
	}
	_ = emit(realtime.DoneFrame())
	observability.Current().IncChatAnswer("stream", types.TurnPartial)
	s.log.Info("Chat stream canceled", "assignment_id", k.AssignmentID, "kept_chars", len(text))
	return turn, nil
}

func (s *Session) failStream(ctx context.Context, k Key, cause error, emit func(realtime.Frame) error) (*types.ChatTurn, error) {
	turn, err := s.failTurn(ctx, k, cause)
	var c *llmerr.Classified
	if errors.As(err, &c) {
		_ = emit(realtime.ErrorFrame(c.UserMessage(), c.Notice()))
	}
	return turn, err
}

func (s *Session) failTurn(ctx context.Context, k Key, cause error) (*types.ChatTurn, error) {
	c := llmerr.Classify(cause)
	observability.Current().IncChatAnswer("error", string(c.Kind))
	s.log.Warn("Chat answer failed", "assignment_id", k.AssignmentID, "kind", c.Kind, "error", cause)
	turn, err := s.appendTurn(ctx, k, types.RoleAssistant, c.UserMessage(), types.TurnError)
	if err != nil {
		return nil, errors.Join(c, err)
	}
	return turn, c
}

// appendTurn writes past request cancellation so a stopped stream still lands.
func (s *Session) appendTurn(ctx context.Context, k Key, role, content, status string) (*types.ChatTurn, error) {
	return s.deps.Turns.Append(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, &types.ChatTurn{
		AssignmentID: k.AssignmentID,
		UserID:       k.UserID,
		Role:         role,
		Content:      content,
		Status:       status,
	})
}

func historyText(turns []*types.ChatTurn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Status == types.TurnError {
			continue
		}
		who := "Student"
		if t.Role == types.RoleAssistant {
			who = "Assistant"
		}
		b.WriteString(who + ": " + strings.TrimSpace(t.Content) + "\n")
	}
	return strings.TrimSpace(b.String())
}
