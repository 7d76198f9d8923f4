package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// refusalSentinel is the token the model is instructed to emit when the
// passages cannot support an answer.
const refusalSentinel = "INSUFFICIENT_CONTEXT"

const answerSystemPrompt = `You answer questions using ONLY the numbered context passages provided.
Do not use prior knowledge. Do not speculate.
If the passages do not contain the information needed to answer, reply with exactly ` + refusalSentinel + ` and nothing else.`

// ModelGenerator implements rag.Generator with a language model. Calls
// are made at the configured temperature, 0 by default, so the same
// evidence yields the same answer.
type ModelGenerator struct {
	model       llms.Model
	temperature float64
}

// NewModelGenerator creates a model-backed generator at temperature 0.
func NewModelGenerator(model llms.Model) *ModelGenerator {
	return &ModelGenerator{model: model}
}

// NewModelGeneratorWithTemperature creates a generator at a custom
// temperature. Intended for testing only.
func NewModelGeneratorWithTemperature(model llms.Model, temperature float64) *ModelGenerator {
	return &ModelGenerator{model: model, temperature: temperature}
}

func (g *ModelGenerator) Generate(ctx context.Context, query string, evidence []rag.EvidenceItem) (rag.GenerationResult, error) {
	passages := passagesOf(evidence)
	if len(passages) == 0 {
		return rag.GenerationResult{Refused: true, Reason: rag.ReasonUngroundable}, nil
	}

	var sb strings.Builder
	sb.WriteString("Context passages:\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p.Content)
	}
	fmt.Fprintf(&sb, "\nQuestion: %s\n", query)

	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, answerSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, sb.String()),
	}, llms.WithTemperature(g.temperature))
	if err != nil {
		return rag.GenerationResult{}, fmt.Errorf("generation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return rag.GenerationResult{}, fmt.Errorf("generation call returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Content)
	if answer == "" || strings.Contains(answer, refusalSentinel) {
		return rag.GenerationResult{Refused: true, Reason: rag.ReasonUngroundable}, nil
	}
	return rag.GenerationResult{Text: answer}, nil
}

// ExtractiveGenerator implements rag.Generator without a model: it
// extracts the passage sentences that best match the query and returns
// them in passage order. Fully deterministic, which makes it the default
// for tests and offline runs.
type ExtractiveGenerator struct {
	// MaxSentences caps the extracted answer, default 3.
	MaxSentences int
}

// NewExtractiveGenerator creates an extractive generator with defaults.
func NewExtractiveGenerator() *ExtractiveGenerator {
	return &ExtractiveGenerator{}
}

func (g *ExtractiveGenerator) Generate(ctx context.Context, query string, evidence []rag.EvidenceItem) (rag.GenerationResult, error) {
	maxSentences := g.MaxSentences
	if maxSentences < 1 {
		maxSentences = 3
	}

	passages := passagesOf(evidence)
	queryTokens := answerTokens(query)

	type scored struct {
		order    int
		sentence string
		score    float64
	}
	var candidates []scored
	order := 0
	for _, p := range passages {
		for _, sentence := range splitSentences(p.Content) {
			overlap := tokenOverlap(queryTokens, answerTokens(sentence))
			if overlap > 0 {
				candidates = append(candidates, scored{order: order, sentence: sentence, score: overlap})
			}
			order++
		}
	}
	if len(candidates) == 0 {
		return rag.GenerationResult{Refused: true, Reason: rag.ReasonUngroundable}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxSentences {
		candidates = candidates[:maxSentences]
	}
	// Present the selected sentences in their original passage order.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].order < candidates[j].order
	})

	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = c.sentence
	}
	return rag.GenerationResult{Text: strings.Join(parts, " ")}, nil
}

func passagesOf(evidence []rag.EvidenceItem) []rag.EvidenceItem {
	var passages []rag.EvidenceItem
	for _, item := range evidence {
		if item.Kind == rag.KindPassage {
			passages = append(passages, item)
		}
	}
	return passages
}

func splitSentences(text string) []string {
	var sentences []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func tokenOverlap(query, candidate map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for token := range query {
		if candidate[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

var answerStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "do": true, "does": true, "for": true, "from": true,
	"how": true, "in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "to": true, "was": true, "what": true,
	"when": true, "where": true, "which": true, "why": true, "with": true,
}

func answerTokens(text string) map[string]bool {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		if !answerStopwords[token] {
			set[token] = true
		}
	}
	return set
}
