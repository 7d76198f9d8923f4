package rag

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Metric names shared between evaluators and configuration thresholds.
const (
	MetricContextPrecision = "context_precision"
	MetricContextRecall    = "context_recall"
	MetricFaithfulness     = "faithfulness"
	MetricAnswerRelevancy  = "answer_relevancy"
)

// QualityVerdict is the result of one evaluation call. Verdicts are
// immutable; a later evaluation supersedes the current verdict rather than
// mutating it.
type QualityVerdict struct {
	// Scores maps metric name to a score in [0,1].
	Scores map[string]float64 `json:"scores"`

	// IsSufficient is true iff every configured threshold is met.
	IsSufficient bool `json:"is_sufficient"`

	// Rationale is a free-text explanation of the verdict.
	Rationale string `json:"rationale"`

	// Attempt is the loop attempt that produced this verdict.
	Attempt int `json:"attempt"`

	CreatedAt time.Time `json:"created_at"`
}

// String renders the verdict for logs.
func (v QualityVerdict) String() string {
	names := make([]string, 0, len(v.Scores))
	for name := range v.Scores {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.3f", name, v.Scores[name]))
	}
	return fmt.Sprintf("attempt=%d sufficient=%t %s", v.Attempt, v.IsSufficient, strings.Join(parts, " "))
}
