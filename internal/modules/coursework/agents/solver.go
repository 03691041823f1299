package agents

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/prompts"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

const (
	DefaultBatchSize   = 3
	DefaultConcurrency = 1
)

// Batches yields consecutive slices of at most size questions with their batch index.
func Batches(questions []types.Question, size int) iter.Seq2[int, []types.Question] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return func(yield func(int, []types.Question) bool) {
		for i, start := 0, 0; start < len(questions); i, start = i+1, start+size {
			end := min(start+size, len(questions))
			if !yield(i, questions[start:end]) {
				return
			}
		}
	}
}

type SolverConfig struct {
	BatchSize   int
	Concurrency int
	Temperature *float64
}

type SolveResult struct {
	Solutions     []types.SolvedQuestion
	TotalSolved   int
	FailedBatches []int
}

type Solver struct {
	log *logger.Logger
	cfg SolverConfig
}

func NewSolver(log *logger.Logger, cfg SolverConfig) *Solver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Solver{log: log.With("agent", "Solver"), cfg: cfg}
}

type solverBatch struct {
	Solutions []struct {
		QuestionID       string         `json:"questionId"`
		Solution         types.Solution `json:"solution"`
		SubPartSolutions []struct {
			Part     string `json:"part"`
			Solution string `json:"solution"`
		} `json:"subPartSolutions"`
	} `json:"solutions"`
}

// Solve runs one call per batch. A failed batch is logged and left out; the
// returned solutions keep question order whatever the concurrency. The only
// error is the context's.
func (s *Solver) Solve(ctx context.Context, llm openai.Client, subject string, questions []types.Question) (SolveResult, error) {
	n := (len(questions) + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	perBatch := make([][]types.SolvedQuestion, n)
	failed := make([]bool, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for idx, batch := range Batches(questions, s.cfg.BatchSize) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sols, err := s.solveBatch(gctx, llm, subject, batch)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn("Solver batch failed", "batch", idx, "questions", len(batch), "error", err)
				failed[idx] = true
				return nil
			}
			perBatch[idx] = sols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SolveResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return SolveResult{}, err
	}

	out := SolveResult{Solutions: []types.SolvedQuestion{}}
	for i := range perBatch {
		if failed[i] {
			out.FailedBatches = append(out.FailedBatches, i)
			continue
		}
		out.Solutions = append(out.Solutions, perBatch[i]...)
	}
	out.TotalSolved = len(out.Solutions)
	s.log.Info("Solver finished", "batches", n, "failed_batches", len(out.FailedBatches), "solved", out.TotalSolved)
	return out, nil
}

func (s *Solver) solveBatch(ctx context.Context, llm openai.Client, subject string, batch []types.Question) ([]types.SolvedQuestion, error) {
	p, err := prompts.Build(prompts.PromptSolveBatch, prompts.Input{
		Description:   subject,
		QuestionsJSON: mustJSON(batch),
	})
	if err != nil {
		return nil, err
	}
	var opts []openai.CallOption
	if s.cfg.Temperature != nil {
		opts = append(opts, openai.WithTemperature(*s.cfg.Temperature))
	}
	obj, err := llm.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema, opts...)
	if err != nil {
		return nil, err
	}
	var sb solverBatch
	if err := decodeInto(obj, &sb); err != nil {
		return nil, err
	}

	// Match by question id, then pair any leftovers with the unmatched
	// questions by position; models sometimes rewrite ids ("Question 1" for "1").
	sols := make([]types.SolvedQuestion, 0, len(sb.Solutions))
	for _, raw := range sb.Solutions {
		sq := types.SolvedQuestion{QuestionID: strings.TrimSpace(raw.QuestionID), Solution: raw.Solution}
		if len(raw.SubPartSolutions) > 0 {
			sq.SubPartSolutions = make(map[string]string, len(raw.SubPartSolutions))
			for _, sp := range raw.SubPartSolutions {
				sq.SubPartSolutions[strings.TrimSpace(sp.Part)] = sp.Solution
			}
		}
		sols = append(sols, sq)
	}
	out, err := matchSolutions(batch, sols)
	if err != nil {
		return nil, err
	}
	if len(out) < len(batch) {
		s.log.Warn("Solver batch incomplete", "questions", len(batch), "solved", len(out))
	}
	return out, nil
}

// matchSolutions orders solutions by the batch's questions. It fails when
// nothing in the reply can be tied to a question.
func matchSolutions(batch []types.Question, sols []types.SolvedQuestion) ([]types.SolvedQuestion, error) {
	byID := make(map[string]int, len(sols))
	for i, sq := range sols {
		if _, dup := byID[sq.QuestionID]; !dup {
			byID[sq.QuestionID] = i
		}
	}
	used := make([]bool, len(sols))
	slot := make([]int, len(batch))
	for i, q := range batch {
		slot[i] = -1
		if j, ok := byID[q.ID]; ok && !used[j] {
			slot[i] = j
			used[j] = true
		}
	}
	var spare []int
	for j := range sols {
		if !used[j] {
			spare = append(spare, j)
		}
	}
	for i := range batch {
		if slot[i] >= 0 || len(spare) == 0 {
			continue
		}
		slot[i], spare = spare[0], spare[1:]
	}

	out := make([]types.SolvedQuestion, 0, len(batch))
	for i, q := range batch {
		if slot[i] < 0 {
			continue
		}
		sq := sols[slot[i]]
		sq.QuestionID = q.ID
		out = append(out, sq)
	}
	if len(out) == 0 && len(batch) > 0 {
		return nil, fmt.Errorf("no solutions matched %d questions", len(batch))
	}
	return out, nil
}
