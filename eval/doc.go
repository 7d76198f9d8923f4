// Package eval grades retrieved evidence against a query. A MetricScorer
// produces named quality scores, and ThresholdEvaluator turns those
// scores into the sufficiency verdict that drives the retrieval loop.
package eval
