// Agentic RAG - A bounded retrieval-evaluate-generate control loop in Go
//
// This module implements the decision-control core of an agentic RAG
// pipeline: a stateful retrieval-grade loop that gates answer generation on
// a measured sufficiency verdict over retrieved evidence, with a fail-closed
// failure policy and a structured refusal surface.
//
// Packages:
//
//   - graph: a small typed state-graph runtime (nodes, static and
//     conditional edges) that drives the pipeline workflow
//   - rag: the core domain - evidence model, quality verdicts, loop router,
//     retrieval-grade loop and pipeline controller
//   - store: evidence store clients (in-memory vector store, Redis) and
//     embedders (OpenAI, deterministic hash)
//   - eval: quality evaluators (threshold gate over lexical or LLM scoring)
//   - generate: answer generators (context-only LLM, extractive) and the
//     answer-quality validation gate
//   - audit: append-only invocation records (memory, SQLite, Postgres)
//   - log: logging abstraction with a golog binding
//
// A minimal end-to-end run:
//
//	cfg := rag.DefaultConfig()
//	st := store.NewMemoryStore(store.NewHashEmbedder(64))
//	// ... seed st with corpus passages and exemplars ...
//	p, err := rag.NewPipeline(cfg,
//		rag.WithStore(st),
//		rag.WithEvaluator(eval.NewThresholdEvaluator(eval.NewLexicalScorer(), cfg.Thresholds)),
//		rag.WithGenerator(generate.NewExtractiveGenerator()),
//	)
//	if err != nil {
//		// invalid configuration is fatal, never retried
//	}
//	resp, err := p.Process(ctx, rag.NewQuery("What is attention?"))
//	if resp.Refused {
//		fmt.Println("refused:", resp.Reason)
//	}
package agenticrag
