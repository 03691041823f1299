package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursework-backend/internal/data/repos"
	"github.com/yungbote/coursework-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/llmerr"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
	"github.com/yungbote/coursework-backend/internal/platform/openai/openaitest"
	"github.com/yungbote/coursework-backend/internal/realtime"
)

type staticContent struct {
	text string
	err  error
}

func (s staticContent) CombinedContent(_ context.Context, assignmentID, userID uuid.UUID) (*types.Assignment, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return &types.Assignment{ID: assignmentID, UserID: userID, Title: "Kinematics HW"}, s.text, nil
}

func newSession(t *testing.T, llm *openaitest.Client, content ContentSource) (*Session, repos.ChatTurnRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	turns := repos.NewChatTurnRepo(db, log)
	if content == nil {
		content = staticContent{text: "Q1. A ball is dropped from 20 m. How long does it fall?"}
	}
	return New(Deps{
		Log:     log,
		LLM:     &openaitest.Factory{Client: llm},
		Turns:   turns,
		Content: content,
	}), turns
}

func newKey() Key { return Key{AssignmentID: uuid.New(), UserID: uuid.New()} }

type frameLog struct {
	mu     sync.Mutex
	frames []realtime.Frame
}

func (f *frameLog) emit(fr realtime.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *frameLog) content() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for _, fr := range f.frames {
		b.WriteString(fr.Content)
	}
	return b.String()
}

func (f *frameLog) last() realtime.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return realtime.Frame{}
	}
	return f.frames[len(f.frames)-1]
}

func TestHistorySeedsWelcomeOnce(t *testing.T) {
	s, _ := newSession(t, &openaitest.Client{}, nil)
	k := newKey()
	for i := 0; i < 2; i++ {
		turns, err := s.History(context.Background(), k)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(turns) != 1 || turns[0].Role != types.RoleAssistant || turns[0].Content != WelcomeMessage {
			t.Fatalf("history: want=welcome got=%+v", turns)
		}
	}
}

func TestAskStoresBothTurns(t *testing.T) {
	llm := &openaitest.Client{TextFunc: func(_ context.Context, system, user string) (string, error) {
		if !strings.Contains(system, "dropped from 20 m") || !strings.Contains(user, "Student: where do I start?") {
			return "", errors.New("prompt missing material or question")
		}
		return "  Start with d = g t^2 / 2.  ", nil
	}}
	s, turns := newSession(t, llm, nil)
	k := newKey()

	turn, err := s.Ask(context.Background(), k, "sk-test", "where do I start?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if turn.Content != "Start with d = g t^2 / 2." || turn.Status != types.TurnComplete {
		t.Fatalf("answer: got=%+v", turn)
	}
	all, _ := turns.List(testutil.DBC(), k.AssignmentID, k.UserID, 0)
	if len(all) != 2 || all[0].Role != types.RoleUser || all[1].Role != types.RoleAssistant {
		t.Fatalf("turns: got=%+v", all)
	}
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	llm := &openaitest.Client{}
	s, _ := newSession(t, llm, nil)
	if _, err := s.Ask(context.Background(), newKey(), "sk-test", "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err: want=%v got=%v", ErrEmptyQuestion, err)
	}
	if llm.CallCount() != 0 {
		t.Fatalf("calls: want=0 got=%d", llm.CallCount())
	}
}

func TestAskFailureBecomesErrorTurn(t *testing.T) {
	s, _ := newSession(t, &openaitest.Client{}, staticContent{err: types.ErrContentNotExtracted})
	turn, err := s.Ask(context.Background(), newKey(), "sk-test", "help?")
	var c *llmerr.Classified
	if !errors.As(err, &c) || c.Kind != llmerr.KindContentNotExtracted {
		t.Fatalf("err: want=content_not_extracted got=%v", err)
	}
	if turn == nil || turn.Status != types.TurnError || turn.Content != c.UserMessage() {
		t.Fatalf("turn: got=%+v", turn)
	}
}

func TestStreamCompletes(t *testing.T) {
	llm := &openaitest.Client{StreamFunc: func(_ context.Context, _, _ string, onDelta func(string)) (string, error) {
		for _, d := range []string{"About ", "2.0", " s."} {
			onDelta(d)
		}
		return "About 2.0 s.", nil
	}}
	s, _ := newSession(t, llm, nil)
	var fl frameLog

	turn, err := s.Stream(context.Background(), newKey(), "sk-test", "how long?", fl.emit)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if fl.content() != "About 2.0 s." || !fl.last().Done {
		t.Fatalf("frames: content=%q last=%+v", fl.content(), fl.last())
	}
	if turn.Content != "About 2.0 s." || turn.Status != types.TurnComplete {
		t.Fatalf("turn: got=%+v", turn)
	}
}

func TestCancelKeepsPartialAnswer(t *testing.T) {
	llm := &openaitest.Client{StreamFunc: func(ctx context.Context, _, _ string, onDelta func(string)) (string, error) {
		onDelta("Hel")
		onDelta("lo")
		<-ctx.Done()
		return "Hello", ctx.Err()
	}}
	s, turns := newSession(t, llm, nil)
	k := newKey()

	var fl frameLog
	emit := func(fr realtime.Frame) error {
		_ = fl.emit(fr)
		if fl.content() == "Hello" && fr.Content != "" {
			if _, err := s.Cancel(context.Background(), k); err != nil {
				t.Errorf("Cancel: %v", err)
			}
		}
		return nil
	}

	turn, err := s.Stream(context.Background(), k, "sk-test", "say hello", emit)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if turn == nil || turn.Content != "Hello" || turn.Status != types.TurnPartial {
		t.Fatalf("turn: want=Hello/partial got=%+v", turn)
	}
	if !fl.last().Done {
		t.Fatalf("last frame: want=done got=%+v", fl.last())
	}
	all, _ := turns.List(testutil.DBC(), k.AssignmentID, k.UserID, 0)
	if len(all) != 2 || all[1].Content != "Hello" {
		t.Fatalf("stored: got=%+v", all)
	}
}

func TestClientGoneKeepsPartialAnswer(t *testing.T) {
	llm := &openaitest.Client{StreamFunc: func(ctx context.Context, _, _ string, onDelta func(string)) (string, error) {
		onDelta("Par")
		onDelta("tial")
		<-ctx.Done()
		return "", ctx.Err()
	}}
	s, _ := newSession(t, llm, nil)
	sent := 0
	emit := func(fr realtime.Frame) error {
		if fr.Content == "" {
			return nil
		}
		sent++
		if sent == 2 {
			return errors.New("broken pipe")
		}
		return nil
	}
	turn, err := s.Stream(context.Background(), newKey(), "sk-test", "q", emit)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if turn == nil || turn.Content != "Partial" || turn.Status != types.TurnPartial {
		t.Fatalf("turn: got=%+v", turn)
	}
}

func TestCancelBeforeAnyTokenStoresNothing(t *testing.T) {
	started := make(chan struct{})
	llm := &openaitest.Client{StreamFunc: func(ctx context.Context, _, _ string, _ func(string)) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	s, turns := newSession(t, llm, nil)
	k := newKey()
	go func() {
		<-started
		_, _ = s.Cancel(context.Background(), k)
	}()
	var fl frameLog
	turn, err := s.Stream(context.Background(), k, "sk-test", "q", fl.emit)
	if err != nil || turn != nil {
		t.Fatalf("Stream: want=nil,nil got=%+v,%v", turn, err)
	}
	all, _ := turns.List(testutil.DBC(), k.AssignmentID, k.UserID, 0)
	if len(all) != 1 || all[0].Role != types.RoleUser {
		t.Fatalf("stored: want=user turn only got=%+v", all)
	}
}

func TestStreamErrorSendsErrorFrame(t *testing.T) {
	llm := &openaitest.Client{StreamFunc: func(context.Context, string, string, func(string)) (string, error) {
		return "", &openai.HTTPError{StatusCode: 401, Body: "bad key"}
	}}
	s, _ := newSession(t, llm, nil)
	var fl frameLog
	turn, err := s.Stream(context.Background(), newKey(), "sk-bad", "q", fl.emit)
	var c *llmerr.Classified
	if !errors.As(err, &c) || c.Kind != llmerr.KindAuth {
		t.Fatalf("err: want=auth got=%v", err)
	}
	if turn == nil || turn.Status != types.TurnError {
		t.Fatalf("turn: got=%+v", turn)
	}
	if last := fl.last(); last.Error != c.UserMessage() || last.Notice != "Invalid API key" {
		t.Fatalf("frame: got=%+v", last)
	}
}

func TestStreamWithoutCredential(t *testing.T) {
	llm := &openaitest.Client{}
	s, _ := newSession(t, llm, nil)
	var fl frameLog
	_, err := s.Stream(context.Background(), newKey(), "", "q", fl.emit)
	var c *llmerr.Classified
	if !errors.As(err, &c) || c.Kind != llmerr.KindAuth {
		t.Fatalf("err: want=auth got=%v", err)
	}
	if llm.CallCount() != 0 {
		t.Fatalf("calls: want=0 got=%d", llm.CallCount())
	}
}

func TestClearReseedsWelcome(t *testing.T) {
	llm := &openaitest.Client{TextFunc: func(context.Context, string, string) (string, error) { return "ok", nil }}
	s, _ := newSession(t, llm, nil)
	k := newKey()
	if _, err := s.Ask(context.Background(), k, "sk-test", "hi"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	turns, err := s.Clear(context.Background(), k)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != WelcomeMessage {
		t.Fatalf("after clear: got=%+v", turns)
	}
}

func TestHistoryTextSkipsErrorTurns(t *testing.T) {
	got := historyText([]*types.ChatTurn{
		{Role: types.RoleUser, Content: "hi", Status: types.TurnComplete},
		{Role: types.RoleAssistant, Content: "rate limited", Status: types.TurnError},
		{Role: types.RoleAssistant, Content: "Hel", Status: types.TurnPartial},
	})
	want := "Student: hi\nAssistant: Hel"
	if got != want {
		t.Fatalf("historyText: want=%q got=%q", want, got)
	}
}
