package rag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/log"
)

// mockStore serves scripted batches per attempt and records call shapes.
type mockStore struct {
	mu            sync.Mutex
	corpus        [][]EvidenceItem // indexed by attempt-1, last batch reused
	exemplars     []EvidenceItem
	corpusErrs    int // fail the first N corpus retrievals
	corpusCalls   int
	exemplarCalls int
	corpusTopKs   []int
}

func (m *mockStore) Retrieve(ctx context.Context, query string, topK int, ns Namespace) ([]EvidenceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ns == NamespaceExemplar {
		m.exemplarCalls++
		return m.exemplars, nil
	}

	m.corpusCalls++
	m.corpusTopKs = append(m.corpusTopKs, topK)
	if m.corpusCalls <= m.corpusErrs {
		return nil, errors.New("backing store unreachable")
	}
	if len(m.corpus) == 0 {
		return nil, nil
	}
	idx := m.corpusCalls - 1
	if idx >= len(m.corpus) {
		idx = len(m.corpus) - 1
	}
	return m.corpus[idx], nil
}

// mockEvaluator returns scripted sufficiency values and records what it saw.
type mockEvaluator struct {
	mu       sync.Mutex
	script   []bool // sufficiency per call, last value reused
	err      error
	calls    int
	seenLens []int
	seenIDs  [][]string
	hints    []*ReferenceHint
}

func (m *mockEvaluator) Evaluate(ctx context.Context, query string, evidence []EvidenceItem, hint *ReferenceHint) (QualityVerdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.seenLens = append(m.seenLens, len(evidence))
	ids := make([]string, len(evidence))
	for i, item := range evidence {
		ids[i] = item.ID
	}
	m.seenIDs = append(m.seenIDs, ids)
	m.hints = append(m.hints, hint)

	if m.err != nil {
		return QualityVerdict{}, m.err
	}

	idx := m.calls - 1
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	sufficient := false
	if len(m.script) > 0 {
		sufficient = m.script[idx]
	}
	return QualityVerdict{
		Scores:       map[string]float64{MetricContextPrecision: 0.9, MetricContextRecall: 0.9},
		IsSufficient: sufficient,
		CreatedAt:    time.Now(),
	}, nil
}

func passages(ids ...string) []EvidenceItem {
	items := make([]EvidenceItem, len(ids))
	for i, id := range ids {
		items[i] = EvidenceItem{ID: id, Kind: KindPassage, Content: "content " + id, Score: 1 - float64(i)*0.1}
	}
	return items
}

func newTestLoop(t *testing.T, cfg *Config, store EvidenceStore, evaluator Evaluator) *Loop {
	t.Helper()
	loop, err := NewLoop(cfg, store, evaluator, nil, &log.NoOpLogger{})
	require.NoError(t, err)
	return loop
}

func TestLoopStopsSufficientOnThirdAttempt(t *testing.T) {
	// Scenario: insufficient twice, sufficient on the final allowed attempt.
	cfg := DefaultConfig()
	store := &mockStore{corpus: [][]EvidenceItem{passages("a"), passages("b"), passages("c")}}
	evaluator := &mockEvaluator{script: []bool{false, false, true}}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, StatusSufficient, st.Status)
	assert.Equal(t, 3, st.Attempt)
	assert.True(t, st.Sufficient())
	assert.False(t, st.Cancelled)
	assert.Len(t, st.History, 3)
	assert.Equal(t, 3, evaluator.calls)
}

func TestLoopStopsExhaustedWhenNeverSufficient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	store := &mockStore{corpus: [][]EvidenceItem{passages("a")}}
	evaluator := &mockEvaluator{script: []bool{false}}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, StatusExhausted, st.Status)
	assert.Equal(t, 2, st.Attempt)
	assert.False(t, st.Sufficient())
}

func TestLoopShortCircuitsOnImmediateSufficiency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 5
	store := &mockStore{corpus: [][]EvidenceItem{passages("a")}}
	evaluator := &mockEvaluator{script: []bool{true}}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, StatusSufficient, st.Status)
	assert.Equal(t, 1, st.Attempt)
	assert.Equal(t, 1, evaluator.calls)
}

func TestLoopRespectsAttemptBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 4
	store := &mockStore{corpus: [][]EvidenceItem{passages("a")}}
	evaluator := &mockEvaluator{script: []bool{false}}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, 4, st.Attempt)
	assert.Equal(t, 4, evaluator.calls)
	assert.Equal(t, 4, store.corpusCalls)
}

func TestLoopRetrievalFailureIsFailClosed(t *testing.T) {
	// Scenario: the single allowed attempt fails at retrieval. The attempt
	// is consumed with an insufficient verdict, never surfaced as an error.
	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	store := &mockStore{corpusErrs: 1}
	evaluator := &mockEvaluator{script: []bool{true}}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, StatusExhausted, st.Status)
	assert.Equal(t, 1, st.Attempt)
	require.NotNil(t, st.Verdict)
	assert.False(t, st.Verdict.IsSufficient)
	assert.Contains(t, st.Verdict.Rationale, "retrieval failed")
	// The evaluator is never reached on a failed retrieval.
	assert.Equal(t, 0, evaluator.calls)
}

func TestLoopAllFailuresExhaust(t *testing.T) {
	cfg := DefaultConfig()
	store := &mockStore{corpusErrs: 99}
	evaluator := &mockEvaluator{}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, StatusExhausted, st.Status)
	assert.Equal(t, cfg.MaxAttempts, st.Attempt)
	for _, v := range st.History {
		assert.False(t, v.IsSufficient)
	}
}

func TestLoopEvaluationFailureIsFailClosed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	store := &mockStore{corpus: [][]EvidenceItem{passages("a")}}
	evaluator := &mockEvaluator{err: errors.New("scorer blew up")}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, StatusExhausted, st.Status)
	assert.Equal(t, 2, st.Attempt)
	require.NotNil(t, st.Verdict)
	assert.Contains(t, st.Verdict.Rationale, "evaluation failed")
}

func TestLoopEvidenceIsMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	store := &mockStore{corpus: [][]EvidenceItem{
		passages("a", "b"),
		passages("b", "c"), // b re-retrieved, c new
		passages("a", "d"),
	}}
	evaluator := &mockEvaluator{script: []bool{false, false, false}}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	require.Equal(t, 3, evaluator.calls)
	// Evidence size never decreases across iterations.
	for i := 1; i < len(evaluator.seenLens); i++ {
		assert.GreaterOrEqual(t, evaluator.seenLens[i], evaluator.seenLens[i-1])
	}
	// Every identifier present at iteration N is still present at N+1.
	for i := 1; i < len(evaluator.seenIDs); i++ {
		prev := evaluator.seenIDs[i-1]
		curr := make(map[string]bool, len(evaluator.seenIDs[i]))
		for _, id := range evaluator.seenIDs[i] {
			curr[id] = true
		}
		for _, id := range prev {
			assert.True(t, curr[id], "id %s dropped at iteration %d", id, i+1)
		}
	}
	assert.Equal(t, 4, st.Evidence.Len())
}

func TestLoopPassesExemplarHintToEvaluator(t *testing.T) {
	cfg := DefaultConfig()
	store := &mockStore{
		corpus: [][]EvidenceItem{passages("a", "b", "c")},
		exemplars: []EvidenceItem{{
			ID:       "e1",
			Kind:     KindExemplar,
			Content:  "the curated answer",
			Score:    0.8,
			Metadata: map[string]any{"min_chunks_required": 3},
		}},
	}
	evaluator := &mockEvaluator{script: []bool{true}}
	loop := newTestLoop(t, cfg, store, evaluator)

	st := loop.Run(context.Background(), NewQuery("q"))

	require.Equal(t, 1, evaluator.calls)
	require.NotNil(t, evaluator.hints[0])
	assert.Equal(t, 3, evaluator.hints[0].MinChunksRequired)
	assert.Equal(t, "the curated answer", evaluator.hints[0].ReferenceAnswer)
	assert.Equal(t, 1, store.exemplarCalls)
	assert.Len(t, st.Evidence.Exemplars(), 1)
}

func TestLoopWidensCorpusTopKOnRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopK.WidenBy = 3
	store := &mockStore{corpus: [][]EvidenceItem{passages("a")}}
	evaluator := &mockEvaluator{script: []bool{false, false, true}}
	loop := newTestLoop(t, cfg, store, evaluator)

	loop.Run(context.Background(), NewQuery("q"))

	assert.Equal(t, []int{5, 8, 11}, store.corpusTopKs)
}

func TestLoopCancellationAtIterationBoundary(t *testing.T) {
	t.Run("cancelled before first iteration", func(t *testing.T) {
		cfg := DefaultConfig()
		store := &mockStore{corpus: [][]EvidenceItem{passages("a")}}
		evaluator := &mockEvaluator{script: []bool{false}}
		loop := newTestLoop(t, cfg, store, evaluator)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		st := loop.Run(ctx, NewQuery("q"))

		assert.Equal(t, StatusExhausted, st.Status)
		assert.True(t, st.Cancelled)
		assert.Equal(t, 0, st.Attempt)
		assert.Equal(t, 0, evaluator.calls)
	})

	t.Run("cancelled between iterations", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxAttempts = 5
		ctx, cancel := context.WithCancel(context.Background())

		store := &mockStore{corpus: [][]EvidenceItem{passages("a")}}
		evaluator := &cancellingEvaluator{cancel: cancel}
		loop := newTestLoop(t, cfg, store, evaluator)

		st := loop.Run(ctx, NewQuery("q"))

		// One attempt completed, then the boundary check stops the loop
		// without a further evaluation.
		assert.Equal(t, 1, st.Attempt)
		assert.Equal(t, StatusExhausted, st.Status)
		assert.True(t, st.Cancelled)
		assert.Equal(t, 1, evaluator.calls)
	})
}

// cancellingEvaluator cancels the run's context during its first call.
type cancellingEvaluator struct {
	cancel context.CancelFunc
	calls  int
}

func (e *cancellingEvaluator) Evaluate(ctx context.Context, query string, evidence []EvidenceItem, hint *ReferenceHint) (QualityVerdict, error) {
	e.calls++
	e.cancel()
	return QualityVerdict{IsSufficient: false, CreatedAt: time.Now()}, nil
}

func TestNewLoopRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 0

	_, err := NewLoop(cfg, &mockStore{}, &mockEvaluator{}, nil, &log.NoOpLogger{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "max_attempts", cfgErr.Field)
}
