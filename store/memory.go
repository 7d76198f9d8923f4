package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

type memoryEntry struct {
	item      rag.EvidenceItem
	embedding []float32
}

// MemoryStore is an in-memory vector store with one independent index per
// namespace. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder Embedder
	entries  map[rag.Namespace][]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		entries:  make(map[rag.Namespace][]memoryEntry),
	}
}

// Add embeds and indexes items into the given namespace. An item with an
// ID already present in the namespace is replaced.
func (s *MemoryStore) Add(ctx context.Context, ns rag.Namespace, items []rag.EvidenceItem) error {
	if err := validateNamespace(ns); err != nil {
		return err
	}

	for _, item := range items {
		if item.Kind == "" {
			item.Kind = kindFor(ns)
		}
		embedding, err := s.embedder.Embed(ctx, embeddingText(item))
		if err != nil {
			return fmt.Errorf("failed to embed item %s: %w", item.ID, err)
		}

		s.mu.Lock()
		replaced := false
		for i, entry := range s.entries[ns] {
			if entry.item.ID == item.ID {
				s.entries[ns][i] = memoryEntry{item: item, embedding: embedding}
				replaced = true
				break
			}
		}
		if !replaced {
			s.entries[ns] = append(s.entries[ns], memoryEntry{item: item, embedding: embedding})
		}
		s.mu.Unlock()
	}
	return nil
}

// Retrieve implements rag.EvidenceStore: embed the query and return the
// topK most similar items of the namespace, scored by cosine similarity,
// best first. Invalid arguments and embedder failures surface as
// *rag.RetrievalError.
func (s *MemoryStore) Retrieve(ctx context.Context, query string, topK int, ns rag.Namespace) ([]rag.EvidenceItem, error) {
	if topK < 1 {
		return nil, &rag.RetrievalError{Namespace: ns, Err: fmt.Errorf("top-k must be positive, got %d", topK)}
	}
	if err := validateNamespace(ns); err != nil {
		return nil, &rag.RetrievalError{Namespace: ns, Err: err}
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &rag.RetrievalError{Namespace: ns, Err: fmt.Errorf("failed to embed query: %w", err)}
	}

	s.mu.RLock()
	entries := s.entries[ns]
	scored := make([]rag.EvidenceItem, 0, len(entries))
	for _, entry := range entries {
		item := entry.item
		item.Score = cosineSimilarity(queryVec, entry.embedding)
		scored = append(scored, item)
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Len reports the number of indexed items in a namespace.
func (s *MemoryStore) Len(ns rag.Namespace) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[ns])
}

func validateNamespace(ns rag.Namespace) error {
	switch ns {
	case rag.NamespaceCorpus, rag.NamespaceExemplar:
		return nil
	}
	return fmt.Errorf("unknown namespace %q", ns)
}

func kindFor(ns rag.Namespace) rag.EvidenceKind {
	if ns == rag.NamespaceExemplar {
		return rag.KindExemplar
	}
	return rag.KindPassage
}

// embeddingText picks the text to index. Exemplars match on their curated
// question when present so a query lands on the exemplar for that
// question, not on its answer text.
func embeddingText(item rag.EvidenceItem) string {
	if item.Kind == rag.KindExemplar {
		if q, ok := item.Metadata["question"].(string); ok && q != "" {
			return q
		}
	}
	return item.Content
}

// cosineSimilarity computes cosine similarity between two vectors,
// returning 0 on mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
