package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/graph"
	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/log"
)

// Node names of the pipeline workflow.
const (
	nodeRetrieveAndGrade = "retrieve_and_grade"
	nodeGenerate         = "generate"
)

// Response is the well-formed result every caller receives: a grounded
// answer or a structured refusal, never a raw collaborator error.
type Response struct {
	Answer     string `json:"answer,omitempty"`
	Refused    bool   `json:"refused"`
	Reason     string `json:"reason,omitempty"`
	Sufficient bool   `json:"sufficient"`
	Attempts   int    `json:"attempts"`
	RunID      string `json:"run_id"`
}

// PipelineState flows through the workflow graph. One instance per query;
// invocations share no mutable state.
type PipelineState struct {
	Query    Query
	Loop     *LoopState
	Response Response
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore sets the evidence store client (required).
func WithStore(store EvidenceStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithEvaluator sets the quality evaluator (required).
func WithEvaluator(evaluator Evaluator) Option {
	return func(p *Pipeline) { p.evaluator = evaluator }
}

// WithGenerator sets the answer generator (required).
func WithGenerator(generator Generator) Option {
	return func(p *Pipeline) { p.generator = generator }
}

// WithReformulator sets the between-attempt query reformulation policy.
func WithReformulator(r Reformulator) Option {
	return func(p *Pipeline) { p.reformulator = r }
}

// WithValidator enables the answer-quality second gate.
func WithValidator(v AnswerValidator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithRecorder enables audit recording of completed invocations.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger sets the pipeline logger.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline is the top-level controller: it runs one retrieval-grade loop
// to a terminal state, then either generates an answer from the sufficient
// evidence or applies the refusal policy.
type Pipeline struct {
	config       *Config
	store        EvidenceStore
	evaluator    Evaluator
	generator    Generator
	validator    AnswerValidator
	reformulator Reformulator
	recorder     Recorder
	logger       log.Logger

	loop     *Loop
	runnable *graph.StateRunnable[PipelineState]
}

// NewPipeline wires the workflow graph. Configuration and required
// components are validated here; a *ConfigurationError is fatal and never
// retried.
func NewPipeline(cfg *Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{config: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.store == nil {
		return nil, &ConfigurationError{Field: "store", Reason: "evidence store is required"}
	}
	if p.evaluator == nil {
		return nil, &ConfigurationError{Field: "evaluator", Reason: "quality evaluator is required"}
	}
	if p.generator == nil {
		return nil, &ConfigurationError{Field: "generator", Reason: "answer generator is required"}
	}
	if p.logger == nil {
		p.logger = log.GetDefaultLogger()
	}

	loop, err := NewLoop(cfg, p.store, p.evaluator, p.reformulator, p.logger)
	if err != nil {
		return nil, err
	}
	p.loop = loop

	g := graph.NewStateGraph[PipelineState]()
	g.AddNode(nodeRetrieveAndGrade, "One retrieval+grading attempt", p.retrieveAndGradeNode)
	g.AddNode(nodeGenerate, "Grounded answer generation or refusal", p.generateNode)
	g.SetEntryPoint(nodeRetrieveAndGrade)
	g.AddConditionalEdge(nodeRetrieveAndGrade, func(ctx context.Context, state PipelineState) string {
		if state.Loop.Status == StatusRunning {
			return nodeRetrieveAndGrade
		}
		return nodeGenerate
	})
	g.AddEdge(nodeGenerate, graph.END)

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile pipeline graph: %w", err)
	}
	p.runnable = runnable

	return p, nil
}

// Process runs one query through the pipeline. Each invocation owns its
// LoopState, created here and discarded (or archived via the recorder)
// on return.
func (p *Pipeline) Process(ctx context.Context, query Query) (Response, error) {
	state := PipelineState{
		Query: query,
		Loop:  NewLoopState(),
		Response: Response{
			RunID: uuid.New().String(),
		},
	}
	p.logger.Info("run %s: processing query %q", state.Response.RunID, query.Text)

	out, err := p.runnable.Invoke(ctx, state)
	if err != nil {
		return Response{}, err
	}

	out.Response.Attempts = out.Loop.Attempt
	out.Response.Sufficient = out.Loop.Sufficient()

	p.record(ctx, &out)
	return out.Response, nil
}

// retrieveAndGradeNode runs a single loop iteration. Cancellation is
// checked here, at the iteration boundary, never mid-call.
func (p *Pipeline) retrieveAndGradeNode(ctx context.Context, state PipelineState) (PipelineState, error) {
	if ctx.Err() != nil {
		state.Loop.Status = StatusExhausted
		state.Loop.Cancelled = true
		return state, nil
	}

	p.loop.Step(ctx, state.Query, state.Loop)
	return state, nil
}

// generateNode applies the refusal policy and, only on a sufficient
// terminal state, invokes the generator. No generation call is made for an
// exhausted loop: refusing outright avoids both the cost and the
// hallucination risk of generating from weak context.
func (p *Pipeline) generateNode(ctx context.Context, state PipelineState) (PipelineState, error) {
	switch {
	case state.Loop.Cancelled:
		state.Response.Refused = true
		state.Response.Reason = ReasonCancelled
		return state, nil

	case state.Loop.Status == StatusExhausted:
		state.Response.Refused = true
		state.Response.Reason = ReasonBudgetExhausted
		return state, nil
	}

	genCtx, cancel := callContext(ctx, p.config.Timeouts.Generation)
	defer cancel()

	// Exemplars are threshold hints, never generation context.
	passages := state.Loop.Evidence.Passages()

	result, err := p.generator.Generate(genCtx, state.Query.Text, passages)
	if err != nil {
		// Fail-closed: a generator failure becomes a refusal, not a
		// caller-visible infrastructure error.
		p.logger.Warn("run %s: generation failed: %v", state.Response.RunID, err)
		state.Response.Refused = true
		state.Response.Reason = ReasonUngroundable
		return state, nil
	}
	if result.Refused {
		reason := result.Reason
		if reason == "" {
			reason = ReasonUngroundable
		}
		state.Response.Refused = true
		state.Response.Reason = reason
		return state, nil
	}

	if p.validator != nil {
		verdict, err := p.validator.Validate(genCtx, state.Query.Text, result.Text, passages)
		if err != nil || !verdict.IsSufficient {
			if err != nil {
				p.logger.Warn("run %s: answer validation failed: %v", state.Response.RunID, err)
			} else {
				p.logger.Info("run %s: answer rejected by validator: %s", state.Response.RunID, verdict.String())
			}
			state.Response.Refused = true
			state.Response.Reason = ReasonUngroundable
			return state, nil
		}
		state.Loop.History = append(state.Loop.History, verdict)
	}

	state.Response.Answer = result.Text
	return state, nil
}

// record archives the finished invocation. Best-effort: a recorder failure
// is logged and never affects the response.
func (p *Pipeline) record(ctx context.Context, state *PipelineState) {
	if p.recorder == nil {
		return
	}

	rec := &InvocationRecord{
		ID:        uuid.New().String(),
		QueryID:   state.Query.ID,
		Query:     state.Query.Text,
		Attempts:  state.Loop.Attempt,
		Status:    state.Loop.Status,
		Cancelled: state.Loop.Cancelled,
		Verdicts:  append([]QualityVerdict(nil), state.Loop.History...),
		Answer:    state.Response.Answer,
		Refused:   state.Response.Refused,
		Reason:    state.Response.Reason,
		CreatedAt: time.Now().Unix(),
	}
	// Detach from the caller's context so a cancelled query still gets
	// its audit record.
	if err := p.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Warn("run %s: failed to write audit record: %v", state.Response.RunID, err)
	}
}
