package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

func passage(id, content string) rag.EvidenceItem {
	return rag.EvidenceItem{ID: id, Kind: rag.KindPassage, Content: content}
}

func TestLexicalScorerPrecisionRewardsEarlyRelevance(t *testing.T) {
	scorer := NewLexicalScorer()
	ctx := context.Background()
	query := "how does attention weigh tokens"

	relevantFirst, err := scorer.Score(ctx, query, []rag.EvidenceItem{
		passage("r", "attention lets the model weigh tokens against each other"),
		passage("x", "unrelated prose about gardening techniques"),
	}, nil)
	require.NoError(t, err)

	relevantLast, err := scorer.Score(ctx, query, []rag.EvidenceItem{
		passage("x", "unrelated prose about gardening techniques"),
		passage("r", "attention lets the model weigh tokens against each other"),
	}, nil)
	require.NoError(t, err)

	assert.Greater(t, relevantFirst[rag.MetricContextPrecision], relevantLast[rag.MetricContextPrecision])
	assert.InDelta(t, 1.0, relevantFirst[rag.MetricContextPrecision], 1e-9)
	assert.InDelta(t, 0.5, relevantLast[rag.MetricContextPrecision], 1e-9)
}

func TestLexicalScorerRecallUsesReferenceAnswer(t *testing.T) {
	scorer := NewLexicalScorer()
	ctx := context.Background()
	hint := &rag.ReferenceHint{ReferenceAnswer: "attention computes weighted sums"}

	full, err := scorer.Score(ctx, "q", []rag.EvidenceItem{
		passage("a", "attention computes weighted sums over every token"),
	}, hint)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, full[rag.MetricContextRecall], 1e-9)

	partial, err := scorer.Score(ctx, "q", []rag.EvidenceItem{
		passage("a", "attention is a mechanism"),
	}, hint)
	require.NoError(t, err)
	assert.Less(t, partial[rag.MetricContextRecall], full[rag.MetricContextRecall])
}

func TestLexicalScorerRecallFallsBackToQuery(t *testing.T) {
	scorer := NewLexicalScorer()

	scores, err := scorer.Score(context.Background(), "attention weigh tokens", []rag.EvidenceItem{
		passage("a", "attention can weigh tokens"),
	}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scores[rag.MetricContextRecall], 1e-9)
}

func TestLexicalScorerIgnoresExemplars(t *testing.T) {
	scorer := NewLexicalScorer()

	scores, err := scorer.Score(context.Background(), "attention weigh tokens", []rag.EvidenceItem{
		{ID: "e", Kind: rag.KindExemplar, Content: "attention weigh tokens"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, scores[rag.MetricContextPrecision])
	assert.Zero(t, scores[rag.MetricContextRecall])
}

func TestLexicalScorerNoEvidence(t *testing.T) {
	scorer := NewLexicalScorer()

	scores, err := scorer.Score(context.Background(), "any question", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, scores[rag.MetricContextPrecision])
	assert.Zero(t, scores[rag.MetricContextRecall])
}

// gradingLLM returns a fixed response for every grading call.
type gradingLLM struct {
	response string
	err      error
	prompts  []string
}

func (m *gradingLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *gradingLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.response, m.err
}

func TestModelScorer(t *testing.T) {
	t.Run("parses scores from response", func(t *testing.T) {
		llm := &gradingLLM{response: `{"context_precision": 0.85, "context_recall": 0.75}`}
		scorer := NewModelScorer(llm)

		scores, err := scorer.Score(context.Background(), "what is attention?", []rag.EvidenceItem{
			passage("a", "attention weighs tokens"),
		}, nil)
		require.NoError(t, err)
		assert.InDelta(t, 0.85, scores[rag.MetricContextPrecision], 1e-9)
		assert.InDelta(t, 0.75, scores[rag.MetricContextRecall], 1e-9)

		// The grading prompt carries the question and the passage.
		joined := ""
		for _, p := range llm.prompts {
			joined += p
		}
		assert.Contains(t, joined, "what is attention?")
		assert.Contains(t, joined, "attention weighs tokens")
	})

	t.Run("tolerates surrounding prose", func(t *testing.T) {
		llm := &gradingLLM{response: "Here is my grading:\n```json\n{\"context_precision\": 1.0, \"context_recall\": 0.5}\n```"}
		scorer := NewModelScorer(llm)

		scores, err := scorer.Score(context.Background(), "q", []rag.EvidenceItem{passage("a", "x")}, nil)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, scores[rag.MetricContextPrecision], 1e-9)
	})

	t.Run("clamps out of range scores", func(t *testing.T) {
		llm := &gradingLLM{response: `{"context_precision": 1.4, "context_recall": -0.2}`}
		scorer := NewModelScorer(llm)

		scores, err := scorer.Score(context.Background(), "q", []rag.EvidenceItem{passage("a", "x")}, nil)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, scores[rag.MetricContextPrecision], 1e-9)
		assert.Zero(t, scores[rag.MetricContextRecall])
	})

	t.Run("rejects responses without required metrics", func(t *testing.T) {
		llm := &gradingLLM{response: `{"context_precision": 0.9}`}
		scorer := NewModelScorer(llm)

		_, err := scorer.Score(context.Background(), "q", []rag.EvidenceItem{passage("a", "x")}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects non-JSON responses", func(t *testing.T) {
		llm := &gradingLLM{response: "I cannot grade this."}
		scorer := NewModelScorer(llm)

		_, err := scorer.Score(context.Background(), "q", []rag.EvidenceItem{passage("a", "x")}, nil)
		assert.Error(t, err)
	})

	t.Run("propagates call failures", func(t *testing.T) {
		llm := &gradingLLM{err: errors.New("endpoint down")}
		scorer := NewModelScorer(llm)

		_, err := scorer.Score(context.Background(), "q", []rag.EvidenceItem{passage("a", "x")}, nil)
		assert.Error(t, err)
	})
}
