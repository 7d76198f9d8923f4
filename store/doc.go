// Package store provides evidence store implementations backing the
// retrieval loop: an in-memory vector store for tests and small corpora,
// and a Redis-backed store for shared deployments. Both keep the corpus
// and exemplar namespaces fully separate and rank by cosine similarity.
package store
