package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

type stubScorer struct {
	scores map[string]float64
	err    error
}

func (s *stubScorer) Score(ctx context.Context, query string, evidence []rag.EvidenceItem, hint *rag.ReferenceHint) (map[string]float64, error) {
	return s.scores, s.err
}

func defaultThresholds() map[string]float64 {
	return map[string]float64{
		rag.MetricContextPrecision: 0.7,
		rag.MetricContextRecall:    0.7,
	}
}

func passageEvidence(n int) []rag.EvidenceItem {
	items := make([]rag.EvidenceItem, n)
	for i := range items {
		items[i] = rag.EvidenceItem{ID: string(rune('a' + i)), Kind: rag.KindPassage, Content: "passage"}
	}
	return items
}

func TestThresholdEvaluatorSufficient(t *testing.T) {
	e := NewThresholdEvaluator(&stubScorer{scores: map[string]float64{
		rag.MetricContextPrecision: 0.8,
		rag.MetricContextRecall:    0.9,
	}}, defaultThresholds())

	verdict, err := e.Evaluate(context.Background(), "q", passageEvidence(3), nil)
	require.NoError(t, err)
	assert.True(t, verdict.IsSufficient)
	assert.Equal(t, "all thresholds met", verdict.Rationale)
	assert.InDelta(t, 0.8, verdict.Scores[rag.MetricContextPrecision], 1e-9)
}

func TestThresholdEvaluatorInsufficientMetric(t *testing.T) {
	e := NewThresholdEvaluator(&stubScorer{scores: map[string]float64{
		rag.MetricContextPrecision: 0.8,
		rag.MetricContextRecall:    0.5,
	}}, defaultThresholds())

	verdict, err := e.Evaluate(context.Background(), "q", passageEvidence(3), nil)
	require.NoError(t, err)
	assert.False(t, verdict.IsSufficient)
	assert.Contains(t, verdict.Rationale, rag.MetricContextRecall)
	assert.NotContains(t, verdict.Rationale, rag.MetricContextPrecision)
}

func TestThresholdEvaluatorMissingMetricGatesClosed(t *testing.T) {
	// The scorer only produced precision; the missing recall counts as 0.
	e := NewThresholdEvaluator(&stubScorer{scores: map[string]float64{
		rag.MetricContextPrecision: 0.9,
	}}, defaultThresholds())

	verdict, err := e.Evaluate(context.Background(), "q", passageEvidence(3), nil)
	require.NoError(t, err)
	assert.False(t, verdict.IsSufficient)
	assert.Contains(t, verdict.Rationale, rag.MetricContextRecall)
}

func TestThresholdEvaluatorMinChunksHint(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{
		rag.MetricContextPrecision: 0.9,
		rag.MetricContextRecall:    0.9,
	}}
	e := NewThresholdEvaluator(scorer, defaultThresholds())
	hint := &rag.ReferenceHint{MinChunksRequired: 2}

	t.Run("too few passages", func(t *testing.T) {
		verdict, err := e.Evaluate(context.Background(), "q", passageEvidence(1), hint)
		require.NoError(t, err)
		assert.False(t, verdict.IsSufficient)
		assert.Contains(t, verdict.Rationale, "passages 1 < required 2")
	})

	t.Run("enough passages", func(t *testing.T) {
		verdict, err := e.Evaluate(context.Background(), "q", passageEvidence(2), hint)
		require.NoError(t, err)
		assert.True(t, verdict.IsSufficient)
	})

	t.Run("exemplars do not count as passages", func(t *testing.T) {
		evidence := append(passageEvidence(1), rag.EvidenceItem{ID: "e1", Kind: rag.KindExemplar})
		verdict, err := e.Evaluate(context.Background(), "q", evidence, hint)
		require.NoError(t, err)
		assert.False(t, verdict.IsSufficient)
	})
}

func TestThresholdEvaluatorEmptyEvidence(t *testing.T) {
	e := NewThresholdEvaluator(&stubScorer{}, defaultThresholds())

	_, err := e.Evaluate(context.Background(), "q", nil, nil)
	var evalErr *rag.EvaluationError
	require.ErrorAs(t, err, &evalErr)
}

func TestThresholdEvaluatorScorerFailure(t *testing.T) {
	e := NewThresholdEvaluator(&stubScorer{err: errors.New("scorer down")}, defaultThresholds())

	_, err := e.Evaluate(context.Background(), "q", passageEvidence(1), nil)
	var evalErr *rag.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Contains(t, evalErr.Error(), "scorer down")
}
