package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// AnswerScorer computes named quality scores in [0,1] for a generated
// answer against its query and evidence.
type AnswerScorer interface {
	Score(ctx context.Context, query, answer string, evidence []rag.EvidenceItem) (map[string]float64, error)
}

// Validator implements rag.AnswerValidator: an AnswerScorer produces
// faithfulness and relevancy scores and the answer passes only when every
// threshold is met. A rejected answer becomes a refusal upstream, it is
// never returned to the caller.
type Validator struct {
	scorer     AnswerScorer
	thresholds map[string]float64
}

// NewValidator creates an answer validator. Nil thresholds gate
// faithfulness and answer relevancy at 0.7.
func NewValidator(scorer AnswerScorer, thresholds map[string]float64) *Validator {
	if thresholds == nil {
		thresholds = map[string]float64{
			rag.MetricFaithfulness:    0.7,
			rag.MetricAnswerRelevancy: 0.7,
		}
	}
	return &Validator{scorer: scorer, thresholds: thresholds}
}

func (v *Validator) Validate(ctx context.Context, query, answer string, evidence []rag.EvidenceItem) (rag.QualityVerdict, error) {
	scores, err := v.scorer.Score(ctx, query, answer, evidence)
	if err != nil {
		return rag.QualityVerdict{}, err
	}

	var failures []string
	metrics := make([]string, 0, len(v.thresholds))
	for name := range v.thresholds {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)
	for _, name := range metrics {
		if scores[name] < v.thresholds[name] {
			failures = append(failures, fmt.Sprintf("%s %.2f < %.2f", name, scores[name], v.thresholds[name]))
		}
	}

	verdict := rag.QualityVerdict{
		Scores:       scores,
		IsSufficient: len(failures) == 0,
		CreatedAt:    time.Now(),
	}
	if len(failures) > 0 {
		verdict.Rationale = strings.Join(failures, "; ")
	} else {
		verdict.Rationale = "answer passed validation"
	}
	return verdict, nil
}

// LexicalAnswerScorer is a deterministic answer scorer: faithfulness is
// the fraction of the answer's informative tokens found in the passages,
// relevancy the fraction of the query's tokens echoed by the answer.
type LexicalAnswerScorer struct{}

// NewLexicalAnswerScorer creates a lexical answer scorer.
func NewLexicalAnswerScorer() *LexicalAnswerScorer {
	return &LexicalAnswerScorer{}
}

func (s *LexicalAnswerScorer) Score(ctx context.Context, query, answer string, evidence []rag.EvidenceItem) (map[string]float64, error) {
	answerSet := answerTokens(answer)

	supported := make(map[string]bool)
	for _, p := range passagesOf(evidence) {
		for token := range answerTokens(p.Content) {
			if answerSet[token] {
				supported[token] = true
			}
		}
	}

	faithfulness := 0.0
	if len(answerSet) > 0 {
		faithfulness = float64(len(supported)) / float64(len(answerSet))
	}

	return map[string]float64{
		rag.MetricFaithfulness:    faithfulness,
		rag.MetricAnswerRelevancy: tokenOverlap(answerTokens(query), answerSet),
	}, nil
}

const validationSystemPrompt = `You grade a generated answer for a question answering system.
Given a question, context passages and an answer, output a JSON object with two fields:
  "faithfulness": fraction in [0,1] of the answer's claims that are supported by the passages.
  "answer_relevancy": fraction in [0,1] expressing how directly the answer addresses the question.
Output only the JSON object, nothing else.`

// ModelAnswerScorer grades answers with a language model at temperature 0.
type ModelAnswerScorer struct {
	model llms.Model
}

// NewModelAnswerScorer creates a model-backed answer scorer.
func NewModelAnswerScorer(model llms.Model) *ModelAnswerScorer {
	return &ModelAnswerScorer{model: model}
}

func (s *ModelAnswerScorer) Score(ctx context.Context, query, answer string, evidence []rag.EvidenceItem) (map[string]float64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nContext passages:\n", query)
	for i, p := range passagesOf(evidence) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p.Content)
	}
	fmt.Fprintf(&sb, "\nAnswer: %s\n", answer)

	resp, err := s.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, validationSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, sb.String()),
	}, llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("validation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("validation call returned no choices")
	}

	return parseAnswerScores(resp.Choices[0].Content)
}

func parseAnswerScores(content string) (map[string]float64, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in validation response: %q", content)
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse validation response: %w", err)
	}

	scores := make(map[string]float64, len(raw))
	for name, score := range raw {
		switch {
		case score < 0:
			score = 0
		case score > 1:
			score = 1
		}
		scores[name] = score
	}
	if _, ok := scores[rag.MetricFaithfulness]; !ok {
		return nil, fmt.Errorf("validation response missing %s", rag.MetricFaithfulness)
	}
	if _, ok := scores[rag.MetricAnswerRelevancy]; !ok {
		return nil, fmt.Errorf("validation response missing %s", rag.MetricAnswerRelevancy)
	}
	return scores, nil
}
