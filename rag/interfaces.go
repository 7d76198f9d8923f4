package rag

import "context"

// EvidenceStore retrieves top-k evidence for a query from one namespace.
// Implementations fail with a *RetrievalError when the backing store is
// unreachable or topK is not positive. No retries happen at this boundary;
// retry policy belongs to the retrieval-grade loop.
type EvidenceStore interface {
	Retrieve(ctx context.Context, query string, topK int, ns Namespace) ([]EvidenceItem, error)
}

// Evaluator scores a (query, evidence) pair against the configured metrics
// and derives the sufficiency gate. Implementations fail with an
// *EvaluationError when scoring cannot be computed (e.g. empty evidence).
// For identical inputs and thresholds the boolean gate must be stable even
// if the underlying scores carry bounded jitter.
type Evaluator interface {
	Evaluate(ctx context.Context, query string, evidence []EvidenceItem, hint *ReferenceHint) (QualityVerdict, error)
}

// GenerationResult is either a grounded answer or a deliberate refusal.
type GenerationResult struct {
	Text    string
	Refused bool
	Reason  string
}

// Generator produces an answer grounded exclusively in the supplied
// evidence, or refuses when the evidence does not literally contain an
// answerable fact. Deterministic given identical inputs and generation
// configuration.
type Generator interface {
	Generate(ctx context.Context, query string, evidence []EvidenceItem) (GenerationResult, error)
}

// AnswerValidator is the optional second quality gate applied to a
// generated answer before it is returned.
type AnswerValidator interface {
	Validate(ctx context.Context, query, answer string, evidence []EvidenceItem) (QualityVerdict, error)
}

// Reformulator rewrites the retrieval query between attempts. The default
// policy re-issues the identical query.
type Reformulator interface {
	Reformulate(query Query, attempt int, last *QualityVerdict) string
}
