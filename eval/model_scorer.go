package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

const gradingSystemPrompt = `You grade retrieved context for a question answering system.
Given a question and numbered context passages, output a JSON object with two fields:
  "context_precision": fraction in [0,1] of the passages that are relevant to the question, rewarding relevant passages ranked early.
  "context_recall": fraction in [0,1] of the information needed to answer that is present in the passages.
Output only the JSON object, nothing else.`

// ModelScorer grades evidence with a language model. Calls are made at
// temperature 0 so repeated grading of the same evidence is stable.
type ModelScorer struct {
	model llms.Model
}

// NewModelScorer creates a model-backed scorer.
func NewModelScorer(model llms.Model) *ModelScorer {
	return &ModelScorer{model: model}
}

func (s *ModelScorer) Score(ctx context.Context, query string, evidence []rag.EvidenceItem, hint *rag.ReferenceHint) (map[string]float64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", query)
	if hint != nil && hint.ReferenceAnswer != "" {
		fmt.Fprintf(&sb, "Reference answer: %s\n\n", hint.ReferenceAnswer)
	}
	sb.WriteString("Context passages:\n")
	n := 0
	for _, item := range evidence {
		if item.Kind != rag.KindPassage {
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d. %s\n", n, item.Content)
	}
	if n == 0 {
		sb.WriteString("(none)\n")
	}

	resp, err := s.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, gradingSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, sb.String()),
	}, llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("grading call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("grading call returned no choices")
	}

	return parseScores(resp.Choices[0].Content)
}

// parseScores decodes the model's JSON verdict, tolerating surrounding
// prose and code fences, and clamps every score to [0,1].
func parseScores(content string) (map[string]float64, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in grading response: %q", content)
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse grading response: %w", err)
	}

	scores := make(map[string]float64, len(raw))
	for name, score := range raw {
		scores[name] = clamp(score)
	}
	if _, ok := scores[rag.MetricContextPrecision]; !ok {
		return nil, fmt.Errorf("grading response missing %s", rag.MetricContextPrecision)
	}
	if _, ok := scores[rag.MetricContextRecall]; !ok {
		return nil, fmt.Errorf("grading response missing %s", rag.MetricContextRecall)
	}
	return scores, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
