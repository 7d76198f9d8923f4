// Package rag implements the decision-control core of an agentic RAG
// pipeline.
//
// The center of the package is the retrieval-grade loop (Loop): a bounded
// state machine that retrieves evidence from a corpus namespace and a
// curated exemplar namespace, evaluates the cumulative evidence set
// against configured metric thresholds, and consults a pure routing
// function (Route) to decide between another attempt, handing off to
// generation, or stopping exhausted. Failures inside an iteration are
// recovered fail-closed: they consume an attempt with an insufficient
// verdict and can therefore never unlock generation.
//
// Pipeline is the top-level controller. It runs the loop as a two-node
// workflow graph - a retrieve_and_grade node that loops on itself through
// a conditional edge, and a generate node that applies the refusal
// policy - and always returns a well-formed Response: a grounded answer or
// a structured refusal with a machine-readable reason code.
//
// External collaborators (EvidenceStore, Evaluator, Generator) are plain
// capability interfaces; implementations live in the store, eval and
// generate packages.
package rag
