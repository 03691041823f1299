package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/agents"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

type State string

const (
	StateStart    State = "START"
	StateValidate State = "VALIDATE"
	StateExplain  State = "EXPLAIN"
	StateSolve    State = "SOLVE"
	StateReview   State = "REVIEW"
	StateDone     State = "DONE"
	StateError    State = "ERROR"
)

type Request struct {
	// Credential is the caller's LLM API key.
	Credential string
	Title      string
	Combined   string
	Explain    bool
}

type Result struct {
	State     State
	Validated types.ValidatedContent
	Solve     agents.SolveResult
	HTML      string
	// Degraded is set when HTML is an error fragment from a failed final stage.
	Degraded  bool
	Trace     []State
}

type Orchestrator struct {
	log       *logger.Logger
	llm       openai.Factory
	validator *agents.ContentValidator
	solver    *agents.Solver
	reviewer  *agents.Reviewer
	explainer *agents.ExplainGuide
	tracer    trace.Tracer
}

func New(log *logger.Logger, llm openai.Factory, st Stages) *Orchestrator {
	validateTemp := agents.DefaultValidateTemperature
	if st.Validate.Temperature != nil {
		validateTemp = *st.Validate.Temperature
	}
	return &Orchestrator{
		log:       log.With("component", "AgentPipeline"),
		llm:       llm,
		validator: agents.NewContentValidator(log, validateTemp),
		solver: agents.NewSolver(log, agents.SolverConfig{
			BatchSize:   st.Solve.BatchSize,
			Concurrency: st.Solve.Concurrency,
			Temperature: st.Solve.Temperature,
		}),
		reviewer:  agents.NewReviewer(log, st.Review.Temperature),
		explainer: agents.NewExplainGuide(log, st.Explain.Temperature),
		tracer:    otel.Tracer("coursework/pipeline"),
	}
}

// Run drives START -> VALIDATE -> (EXPLAIN | SOLVE -> REVIEW) -> DONE.
// A failed validation ends in ERROR and is the only stage failure returned;
// solve and review degrade instead.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	ctx = ctxutil.Default(ctx)
	res := Result{State: StateStart, Trace: []State{StateStart}}
	advance := func(s State) {
		res.State = s
		res.Trace = append(res.Trace, s)
	}
	defer func() { observability.Current().IncPipelineRun(string(res.State)) }()

	llm, err := o.llm.ForKey(req.Credential)
	if err != nil {
		advance(StateError)
		return res, err
	}

	ctx, span := o.tracer.Start(ctx, "coursework.pipeline", trace.WithAttributes(
		attribute.Bool("pipeline.explain", req.Explain),
		attribute.Int("pipeline.content_chars", len(req.Combined)),
	))
	defer span.End()

	advance(StateValidate)
	err = o.stage(ctx, StateValidate, func(ctx context.Context) error {
		res.Validated, err = o.validator.Validate(ctx, llm, req.Combined)
		return err
	})
	if err != nil {
		advance(StateError)
		span.SetStatus(codes.Error, "validate failed")
		o.log.Warn("Pipeline validation failed", "error", err)
		return res, fmt.Errorf("validate: %w", err)
	}

	if req.Explain {
		advance(StateExplain)
		_ = o.stage(ctx, StateExplain, func(ctx context.Context) error {
			var ok bool
			res.HTML, ok = o.explainer.Write(ctx, llm, req.Title, res.Validated)
			res.Degraded = !ok
			return ctx.Err()
		})
	} else {
		advance(StateSolve)
		err = o.stage(ctx, StateSolve, func(ctx context.Context) error {
			res.Solve, err = o.solver.Solve(ctx, llm, res.Validated.Metadata.Subject, res.Validated.QuestionList)
			return err
		})
		if err != nil {
			advance(StateError)
			return res, err
		}
		advance(StateReview)
		_ = o.stage(ctx, StateReview, func(ctx context.Context) error {
			var ok bool
			res.HTML, ok = o.reviewer.Review(ctx, llm, req.Title, res.Validated.QuestionList, res.Solve.Solutions)
			res.Degraded = !ok
			return ctx.Err()
		})
	}
	if err := ctx.Err(); err != nil {
		advance(StateError)
		return res, err
	}

	advance(StateDone)
	o.log.Info("Pipeline finished",
		"explain", req.Explain,
		"questions", res.Validated.TotalQuestions,
		"solved", res.Solve.TotalSolved,
		"failed_batches", len(res.Solve.FailedBatches),
		"degraded", res.Degraded,
	)
	return res, nil
}

func (o *Orchestrator) stage(ctx context.Context, s State, fn func(context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "coursework.stage."+string(s))
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.Current().ObserveStage(string(s), status, time.Since(start))
	return err
}
