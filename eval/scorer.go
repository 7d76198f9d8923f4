package eval

import (
	"context"
	"strings"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// MetricScorer computes named quality scores in [0,1] for an evidence set
// against a query.
type MetricScorer interface {
	Score(ctx context.Context, query string, evidence []rag.EvidenceItem, hint *rag.ReferenceHint) (map[string]float64, error)
}

// LexicalScorer is a deterministic token-overlap scorer. It approximates
// context precision as rank-weighted passage relevance and context recall
// as coverage of the reference answer (or, absent one, the query) by the
// retrieved passages. Useful for tests and offline runs without a model.
type LexicalScorer struct {
	// MinRelevance is the token-overlap fraction above which a passage
	// counts as relevant. Defaults to 0.2 when zero.
	MinRelevance float64
}

// NewLexicalScorer creates a lexical scorer with default settings.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

func (s *LexicalScorer) Score(ctx context.Context, query string, evidence []rag.EvidenceItem, hint *rag.ReferenceHint) (map[string]float64, error) {
	minRelevance := s.MinRelevance
	if minRelevance == 0 {
		minRelevance = 0.2
	}

	queryTokens := contentTokens(query)

	var passages []rag.EvidenceItem
	for _, item := range evidence {
		if item.Kind == rag.KindPassage {
			passages = append(passages, item)
		}
	}

	return map[string]float64{
		rag.MetricContextPrecision: contextPrecision(queryTokens, passages, minRelevance),
		rag.MetricContextRecall:    contextRecall(query, passages, hint),
	}, nil
}

// contextPrecision is the mean precision@k over the relevant passages,
// so relevant passages ranked early score higher than the same passages
// ranked late.
func contextPrecision(queryTokens map[string]bool, passages []rag.EvidenceItem, minRelevance float64) float64 {
	if len(passages) == 0 {
		return 0
	}

	var sum float64
	relevant := 0
	for k, passage := range passages {
		if overlapFraction(queryTokens, contentTokens(passage.Content)) < minRelevance {
			continue
		}
		relevant++
		sum += float64(relevant) / float64(k+1)
	}
	if relevant == 0 {
		return 0
	}
	return sum / float64(relevant)
}

// contextRecall measures how much of the reference text the passages
// cover. With an exemplar reference answer the gate is grounded in a
// known-good answer; otherwise the query itself stands in.
func contextRecall(query string, passages []rag.EvidenceItem, hint *rag.ReferenceHint) float64 {
	reference := query
	if hint != nil && hint.ReferenceAnswer != "" {
		reference = hint.ReferenceAnswer
	}

	referenceTokens := contentTokens(reference)
	if len(referenceTokens) == 0 {
		return 0
	}

	covered := make(map[string]bool)
	for _, passage := range passages {
		for token := range contentTokens(passage.Content) {
			if referenceTokens[token] {
				covered[token] = true
			}
		}
	}
	return float64(len(covered)) / float64(len(referenceTokens))
}

func overlapFraction(reference, candidate map[string]bool) float64 {
	if len(reference) == 0 {
		return 0
	}
	matched := 0
	for token := range reference {
		if candidate[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(reference))
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "do": true, "does": true, "for": true, "from": true,
	"how": true, "in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "to": true, "was": true, "what": true,
	"when": true, "where": true, "which": true, "why": true, "with": true,
}

// contentTokens lowercases, splits on non-alphanumerics and drops
// stopwords, returning the distinct informative tokens.
func contentTokens(text string) map[string]bool {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		if !stopwords[token] {
			set[token] = true
		}
	}
	return set
}
