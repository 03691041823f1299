package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/coursework-backend/internal/modules/coursework/agents"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
	"github.com/yungbote/coursework-backend/internal/platform/openai/openaitest"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func validatedReply(n int) map[string]any {
	list := make([]any, n)
	for i := range list {
		list[i] = map[string]any{"id": fmt.Sprintf("%d", i+1), "mainQuestion": fmt.Sprintf("Question %d", i+1), "subParts": []any{}}
	}
	return map[string]any{
		"totalQuestions": n,
		"questionList":   list,
		"cleanedContent": "cleaned",
		"metadata":       map[string]any{"subject": "Chemistry", "topics": []any{"stoichiometry"}},
	}
}

func scripted(questions int) *openaitest.Client {
	return &openaitest.Client{
		JSONFunc: func(_ context.Context, _, user, schema string) (map[string]any, error) {
			switch schema {
			case "validated_content":
				return validatedReply(questions), nil
			case "solver_batch":
				return map[string]any{"solutions": []any{
					map[string]any{"questionId": "1", "solution": map[string]any{"finalAnswer": "42"}},
				}}, nil
			}
			return nil, fmt.Errorf("unexpected schema %s", schema)
		},
		TextFunc: func(_ context.Context, system, _ string) (string, error) {
			if strings.Contains(system, "study guides") {
				return "<h2>Overview</h2>", nil
			}
			return "```html\n<h1>HW</h1>\n```", nil
		},
	}
}

func traceString(tr []State) string {
	parts := make([]string, len(tr))
	for i, s := range tr {
		parts[i] = string(s)
	}
	return strings.Join(parts, ">")
}

func TestRunSolvePath(t *testing.T) {
	llm := scripted(4)
	f := &openaitest.Factory{Client: llm}
	o := New(testLogger(t), f, DefaultStages())

	res, err := o.Run(context.Background(), Request{Credential: "sk-user", Title: "HW", Combined: "Q1 ... Q4"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := traceString(res.Trace); got != "START>VALIDATE>SOLVE>REVIEW>DONE" {
		t.Fatalf("trace: got=%s", got)
	}
	if res.HTML != "<h1>HW</h1>" || res.Degraded {
		t.Fatalf("html: degraded=%v got=%q", res.Degraded, res.HTML)
	}
	// Batch 2 answers as "1"; the reply is paired with question 4 by position.
	if res.Validated.TotalQuestions != 4 || res.Solve.TotalSolved != 2 {
		t.Fatalf("result: questions=%d solved=%d", res.Validated.TotalQuestions, res.Solve.TotalSolved)
	}
	// 1 validate + 2 solver batches of 3 + 1 review.
	if llm.CallCount() != 4 {
		t.Fatalf("calls: want=4 got=%d", llm.CallCount())
	}
	if len(f.Keys) != 1 || f.Keys[0] != "sk-user" {
		t.Fatalf("credential: got=%v", f.Keys)
	}
}

func TestRunExplainPath(t *testing.T) {
	llm := scripted(2)
	o := New(testLogger(t), &openaitest.Factory{Client: llm}, DefaultStages())

	res, err := o.Run(context.Background(), Request{Credential: "k", Title: "HW", Combined: "text", Explain: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := traceString(res.Trace); got != "START>VALIDATE>EXPLAIN>DONE" {
		t.Fatalf("trace: got=%s", got)
	}
	if res.HTML != "<h2>Overview</h2>" {
		t.Fatalf("html: got=%q", res.HTML)
	}
	for _, c := range llm.Calls() {
		if c.SchemaName == "solver_batch" {
			t.Fatalf("explain path must not solve")
		}
	}
}

func TestRunReviewFailureIsDegraded(t *testing.T) {
	llm := scripted(2)
	llm.TextFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("status 503")
	}
	o := New(testLogger(t), &openaitest.Factory{Client: llm}, DefaultStages())

	res, err := o.Run(context.Background(), Request{Credential: "k", Title: "HW", Combined: "text"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone || !res.Degraded {
		t.Fatalf("result: want=DONE degraded got=%s degraded=%v", res.State, res.Degraded)
	}
	if !strings.HasPrefix(res.HTML, `<div class="error">`) {
		t.Fatalf("html: got=%q", res.HTML)
	}
}

func TestRunValidateFailureEndsInError(t *testing.T) {
	llm := &openaitest.Client{JSONFunc: func(context.Context, string, string, string) (map[string]any, error) {
		return map[string]any{"oops": true}, nil
	}}
	o := New(testLogger(t), &openaitest.Factory{Client: llm}, DefaultStages())

	res, err := o.Run(context.Background(), Request{Credential: "k", Combined: "text"})
	if !errors.Is(err, agents.ErrMalformedValidation) {
		t.Fatalf("err: want ErrMalformedValidation got=%v", err)
	}
	if res.State != StateError || traceString(res.Trace) != "START>VALIDATE>ERROR" {
		t.Fatalf("state: got=%s trace=%s", res.State, traceString(res.Trace))
	}
	if res.Validated.Error == "" {
		t.Fatalf("validated content should be error-flagged")
	}
}

func TestRunRequiresCredential(t *testing.T) {
	llm := scripted(1)
	o := New(testLogger(t), &openaitest.Factory{Client: llm}, DefaultStages())
	_, err := o.Run(context.Background(), Request{Combined: "text"})
	if !errors.Is(err, openai.ErrMissingCredential) {
		t.Fatalf("err: want ErrMissingCredential got=%v", err)
	}
	if llm.CallCount() != 0 {
		t.Fatalf("no call may proceed without a credential, got=%d", llm.CallCount())
	}
}

func TestParseStages(t *testing.T) {
	st, err := ParseStages(embeddedStages)
	if err != nil {
		t.Fatalf("ParseStages(embedded): %v", err)
	}
	if st.Solve.BatchSize != 3 || st.Solve.Concurrency != 1 || *st.Validate.Temperature != 0.1 {
		t.Fatalf("embedded: got=%+v", st)
	}

	st, err = ParseStages([]byte("version: 1\nstages:\n  - name: solve\n    concurrency: 4\n  - name: review\n    temperature: 0.3\n"))
	if err != nil {
		t.Fatalf("ParseStages: %v", err)
	}
	if st.Solve.Concurrency != 4 || st.Solve.BatchSize != 3 || *st.Review.Temperature != 0.3 {
		t.Fatalf("override: got=%+v", st)
	}

	for _, bad := range []string{
		"version: 2\n",
		"version: 1\nstages:\n  - name: grade\n",
		"version: 1\nstages:\n  - name: validate\n    temperature: 5\n",
		"version: [",
	} {
		if _, err := ParseStages([]byte(bad)); err == nil {
			t.Fatalf("ParseStages(%q): want error", bad)
		}
	}
}

func TestLoadStagesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nstages:\n  - name: solve\n    batch_size: 5\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(StagesEnv, path)
	if st := LoadStages(testLogger(t)); st.Solve.BatchSize != 5 {
		t.Fatalf("override batch size: want=5 got=%d", st.Solve.BatchSize)
	}

	t.Setenv(StagesEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if st := LoadStages(testLogger(t)); st.Solve.BatchSize != 3 {
		t.Fatalf("missing override falls back to embedded: got=%d", st.Solve.BatchSize)
	}
}
