package rag

import (
	"sort"

	"github.com/google/uuid"
)

// Namespace is a logical partition of the evidence store.
type Namespace string

const (
	// NamespaceCorpus holds the general document corpus.
	NamespaceCorpus Namespace = "corpus"

	// NamespaceExemplar holds curated question/answer exemplars used as
	// sufficiency-threshold hints, never as generation context.
	NamespaceExemplar Namespace = "exemplar"
)

// EvidenceKind discriminates retrieved evidence units.
type EvidenceKind string

const (
	// KindPassage is a chunk retrieved from the document corpus.
	KindPassage EvidenceKind = "passage"

	// KindExemplar is a curated reference question/answer pair.
	KindExemplar EvidenceKind = "exemplar"
)

// SourceRef locates an evidence item inside its source document.
type SourceRef struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page,omitempty"`
	Section    string `json:"section,omitempty"`
}

// EvidenceItem is a single retrieved unit. Items are immutable once
// created; only the retrieval score may be refreshed when the same item is
// retrieved again.
type EvidenceItem struct {
	ID       string         `json:"id"`
	Kind     EvidenceKind   `json:"kind"`
	Content  string         `json:"content"`
	Source   SourceRef      `json:"source"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Query is the immutable pipeline input.
type Query struct {
	ID      string
	Text    string
	Filters map[string]string
}

// NewQuery creates a Query with a fresh identifier.
func NewQuery(text string) Query {
	return Query{
		ID:   uuid.New().String(),
		Text: text,
	}
}

// ReferenceHint is derived from the best-matching exemplar and consumed by
// the evaluator as a sufficiency-threshold input.
type ReferenceHint struct {
	// MinChunksRequired is the minimum number of corpus passages the
	// exemplar considers necessary to answer its question.
	MinChunksRequired int

	// ReferenceAnswer is the curated answer text used as a recall reference.
	ReferenceAnswer string
}

// defaultMinChunks applies when an exemplar carries no explicit hint.
const defaultMinChunks = 2

// HintFromExemplars derives a ReferenceHint from the highest-scored
// exemplar, mirroring how the grading step picks the most relevant curated
// example. Returns nil when no exemplars are present.
func HintFromExemplars(exemplars []EvidenceItem) *ReferenceHint {
	var best *EvidenceItem
	for i := range exemplars {
		if exemplars[i].Kind != KindExemplar {
			continue
		}
		if best == nil || exemplars[i].Score > best.Score {
			best = &exemplars[i]
		}
	}
	if best == nil {
		return nil
	}

	hint := &ReferenceHint{
		MinChunksRequired: defaultMinChunks,
		ReferenceAnswer:   best.Content,
	}
	switch v := best.Metadata["min_chunks_required"].(type) {
	case int:
		hint.MinChunksRequired = v
	case float64:
		hint.MinChunksRequired = int(v)
	}
	return hint
}

// EvidenceSet is the ordered, append-only accumulation of evidence across
// loop iterations. Items are deduplicated by ID: re-retrieving an item
// refreshes its score in place but never re-appends or removes it.
type EvidenceSet struct {
	items []EvidenceItem
	index map[string]int
}

// NewEvidenceSet creates an empty evidence set.
func NewEvidenceSet() *EvidenceSet {
	return &EvidenceSet{
		index: make(map[string]int),
	}
}

// Add appends a retrieval batch. New items are appended in
// score-descending order; items already present keep their position and
// get their score refreshed. Returns the number of newly appended items.
func (s *EvidenceSet) Add(batch []EvidenceItem) int {
	sorted := make([]EvidenceItem, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	added := 0
	for _, item := range sorted {
		if pos, ok := s.index[item.ID]; ok {
			s.items[pos].Score = item.Score
			continue
		}
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, item)
		added++
	}
	return added
}

// Len returns the number of items in the set.
func (s *EvidenceSet) Len() int {
	return len(s.items)
}

// Contains reports whether an item with the given ID is present.
func (s *EvidenceSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Items returns a copy of all items in append order.
func (s *EvidenceSet) Items() []EvidenceItem {
	out := make([]EvidenceItem, len(s.items))
	copy(out, s.items)
	return out
}

// Passages returns the corpus passages in append order.
func (s *EvidenceSet) Passages() []EvidenceItem {
	return s.filter(KindPassage)
}

// Exemplars returns the curated exemplars in append order.
func (s *EvidenceSet) Exemplars() []EvidenceItem {
	return s.filter(KindExemplar)
}

func (s *EvidenceSet) filter(kind EvidenceKind) []EvidenceItem {
	var out []EvidenceItem
	for _, item := range s.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}
