package rag

import (
	"context"
	"sync"
	"time"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/log"
)

// LoopStatus is the retrieval-grade loop's terminal-state flag.
type LoopStatus string

const (
	// StatusRunning - the loop has not reached a terminal state.
	StatusRunning LoopStatus = "running"

	// StatusSufficient - the loop stopped with a sufficient evidence set.
	StatusSufficient LoopStatus = "stopped_sufficient"

	// StatusExhausted - the loop stopped with its attempt budget spent.
	StatusExhausted LoopStatus = "stopped_exhausted"
)

// LoopState is the working state of one retrieval-grade loop execution.
// It is owned exclusively by one query and never shared.
type LoopState struct {
	// Attempt counts consumed iterations, starting at 0.
	Attempt int

	// Evidence accumulates across iterations; append-only.
	Evidence *EvidenceSet

	// Verdict is the most recent (authoritative) evaluation result,
	// nil before the first evaluation.
	Verdict *QualityVerdict

	// Status is the terminal-state flag.
	Status LoopStatus

	// Cancelled distinguishes caller cancellation from a genuinely
	// exhausted budget.
	Cancelled bool

	// Hint is the current exemplar-derived sufficiency hint.
	Hint *ReferenceHint

	// History keeps every verdict for auditing; the control logic only
	// ever consults Verdict.
	History []QualityVerdict
}

// NewLoopState creates the initial loop state: running, zero attempts,
// empty evidence, no verdict.
func NewLoopState() *LoopState {
	return &LoopState{
		Evidence: NewEvidenceSet(),
		Status:   StatusRunning,
	}
}

// Sufficient reports whether the loop stopped with sufficient evidence.
func (s *LoopState) Sufficient() bool {
	return s.Status == StatusSufficient
}

// Loop is the retrieval-grade loop: it repeatedly retrieves evidence from
// both namespaces, evaluates the cumulative set, and consults the router
// until the verdict is sufficient or the attempt budget is exhausted.
// Retrieval and evaluation failures are recovered fail-closed: the
// iteration consumes an attempt with an insufficient verdict.
type Loop struct {
	config       *Config
	store        EvidenceStore
	evaluator    Evaluator
	router       *Router
	reformulator Reformulator
	logger       log.Logger
}

// NewLoop creates a retrieval-grade loop. The configuration is validated
// here; an invalid budget or threshold never enters the loop.
func NewLoop(cfg *Config, store EvidenceStore, evaluator Evaluator, reformulator Reformulator, logger log.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	router, err := NewRouter(cfg.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if reformulator == nil {
		reformulator = IdentityReformulator{}
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	return &Loop{
		config:       cfg,
		store:        store,
		evaluator:    evaluator,
		router:       router,
		reformulator: reformulator,
		logger:       logger,
	}, nil
}

// Step runs exactly one iteration: increment the attempt counter, retrieve
// from both namespaces, evaluate the full accumulated evidence set, and
// route. On a stop decision the terminal status is written to st.
func (l *Loop) Step(ctx context.Context, query Query, st *LoopState) Decision {
	st.Attempt++
	text := l.reformulator.Reformulate(query, st.Attempt, st.Verdict)

	verdict, err := l.iterate(ctx, query.Text, text, st)
	if err != nil {
		// Fail-closed: the failed iteration consumes an attempt and
		// counts as insufficient, never as sufficient.
		l.logger.Warn("attempt %d failed: %v", st.Attempt, err)
		verdict = QualityVerdict{
			IsSufficient: false,
			Rationale:    err.Error(),
			Attempt:      st.Attempt,
			CreatedAt:    time.Now(),
		}
	}

	st.Verdict = &verdict
	st.History = append(st.History, verdict)

	decision := l.router.Route(verdict.IsSufficient, st.Attempt)
	l.logger.Debug("attempt %d/%d: %s -> %s", st.Attempt, l.router.MaxAttempts(), verdict.String(), decision)

	switch decision {
	case StopSufficient:
		st.Status = StatusSufficient
	case StopExhausted:
		st.Status = StatusExhausted
	}
	return decision
}

// Run drives Step until a terminal state. Cancellation is honored at
// iteration boundaries only: a cancelled query stops with exhausted
// semantics and a distinct cancelled flag, bypassing a final evaluation.
func (l *Loop) Run(ctx context.Context, query Query) *LoopState {
	st := NewLoopState()
	for st.Status == StatusRunning {
		if ctx.Err() != nil {
			st.Status = StatusExhausted
			st.Cancelled = true
			l.logger.Info("query %s cancelled after %d attempts", query.ID, st.Attempt)
			break
		}
		l.Step(ctx, query, st)
	}
	return st
}

// iterate performs the retrieval and evaluation halves of one attempt.
func (l *Loop) iterate(ctx context.Context, question, retrievalQuery string, st *LoopState) (QualityVerdict, error) {
	passages, exemplars, err := l.retrieveBoth(ctx, retrievalQuery, st.Attempt)
	if err != nil {
		return QualityVerdict{}, err
	}

	st.Evidence.Add(passages)
	st.Evidence.Add(exemplars)
	if hint := HintFromExemplars(st.Evidence.Exemplars()); hint != nil {
		st.Hint = hint
	}

	// Sufficiency must reflect the cumulative evidence, not just the
	// latest batch.
	evalCtx, cancel := callContext(ctx, l.config.Timeouts.Evaluation)
	defer cancel()

	verdict, err := l.evaluator.Evaluate(evalCtx, question, st.Evidence.Items(), st.Hint)
	if err != nil {
		return QualityVerdict{}, NewEvaluationError(err)
	}
	verdict.Attempt = st.Attempt
	if verdict.CreatedAt.IsZero() {
		verdict.CreatedAt = time.Now()
	}
	return verdict, nil
}

// retrieveBoth queries the corpus and exemplar namespaces concurrently;
// the two calls have no data dependency on each other.
func (l *Loop) retrieveBoth(ctx context.Context, query string, attempt int) ([]EvidenceItem, []EvidenceItem, error) {
	retrievalCtx, cancel := callContext(ctx, l.config.Timeouts.Retrieval)
	defer cancel()

	var (
		wg        sync.WaitGroup
		passages  []EvidenceItem
		exemplars []EvidenceItem
		errs      [2]error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		items, err := l.store.Retrieve(retrievalCtx, query, l.config.corpusTopK(attempt), NamespaceCorpus)
		if err != nil {
			errs[0] = NewRetrievalError(NamespaceCorpus, err)
			return
		}
		passages = items
	}()
	go func() {
		defer wg.Done()
		items, err := l.store.Retrieve(retrievalCtx, query, l.config.TopK.Exemplar, NamespaceExemplar)
		if err != nil {
			errs[1] = NewRetrievalError(NamespaceExemplar, err)
			return
		}
		exemplars = items
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return passages, exemplars, nil
}

// callContext bounds one external call. A non-positive timeout means no
// deadline; the caller's context still governs cancellation.
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
