package eval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// ThresholdEvaluator implements rag.Evaluator: a scorer produces metric
// scores and the verdict is sufficient only when every configured
// threshold is met and the exemplar-derived minimum passage count, if
// any, is satisfied.
type ThresholdEvaluator struct {
	scorer     MetricScorer
	thresholds map[string]float64
}

// NewThresholdEvaluator creates an evaluator gating on the given metric
// thresholds.
func NewThresholdEvaluator(scorer MetricScorer, thresholds map[string]float64) *ThresholdEvaluator {
	return &ThresholdEvaluator{scorer: scorer, thresholds: thresholds}
}

func (e *ThresholdEvaluator) Evaluate(ctx context.Context, query string, evidence []rag.EvidenceItem, hint *rag.ReferenceHint) (rag.QualityVerdict, error) {
	if len(evidence) == 0 {
		return rag.QualityVerdict{}, rag.NewEvaluationError(errors.New("cannot evaluate an empty evidence set"))
	}

	scores, err := e.scorer.Score(ctx, query, evidence, hint)
	if err != nil {
		return rag.QualityVerdict{}, rag.NewEvaluationError(err)
	}

	var failures []string
	metrics := make([]string, 0, len(e.thresholds))
	for name := range e.thresholds {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)
	for _, name := range metrics {
		// A metric the scorer did not produce scores zero: unknown
		// quality gates closed.
		if scores[name] < e.thresholds[name] {
			failures = append(failures, fmt.Sprintf("%s %.2f < %.2f", name, scores[name], e.thresholds[name]))
		}
	}

	passages := 0
	for _, item := range evidence {
		if item.Kind == rag.KindPassage {
			passages++
		}
	}
	if hint != nil && passages < hint.MinChunksRequired {
		failures = append(failures, fmt.Sprintf("passages %d < required %d", passages, hint.MinChunksRequired))
	}

	verdict := rag.QualityVerdict{
		Scores:       scores,
		IsSufficient: len(failures) == 0,
		CreatedAt:    time.Now(),
	}
	if len(failures) > 0 {
		verdict.Rationale = strings.Join(failures, "; ")
	} else {
		verdict.Rationale = "all thresholds met"
	}
	return verdict, nil
}
