package rag

import "fmt"

// Machine-readable refusal reason codes. A refusal is a successful,
// deliberate outcome, never an error.
const (
	// ReasonBudgetExhausted - the retrieval budget ran out without a
	// sufficient evidence set.
	ReasonBudgetExhausted = "budget_exhausted"

	// ReasonUngroundable - evidence was marked sufficient but the generator
	// could not ground an answer in it.
	ReasonUngroundable = "ungroundable"

	// ReasonCancelled - the caller cancelled the query.
	ReasonCancelled = "cancelled"
)

// RetrievalError reports that the evidence store was unreachable, returned
// a malformed response, or was invoked with an invalid top-k. It is
// recovered inside the retrieval loop and never surfaced to callers.
type RetrievalError struct {
	Namespace Namespace
	Err       error
}

func (e *RetrievalError) Error() string {
	if e.Namespace != "" {
		return fmt.Sprintf("retrieval failed (namespace %s): %v", e.Namespace, e.Err)
	}
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// NewRetrievalError wraps err as a RetrievalError unless it already is one.
func NewRetrievalError(ns Namespace, err error) error {
	if _, ok := err.(*RetrievalError); ok {
		return err
	}
	return &RetrievalError{Namespace: ns, Err: err}
}

// EvaluationError reports that a sufficiency score could not be computed,
// e.g. on an empty evidence set or a scorer failure. Recovered inside the
// retrieval loop, fail-closed.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// NewEvaluationError wraps err as an EvaluationError unless it already is one.
func NewEvaluationError(err error) error {
	if _, ok := err.(*EvaluationError); ok {
		return err
	}
	return &EvaluationError{Err: err}
}

// ConfigurationError reports an invalid configuration value. It is raised
// at startup, is fatal and is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
