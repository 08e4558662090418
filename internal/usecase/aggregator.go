package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"DealScreener/internal/domain"
	"DealScreener/internal/ports"
)

// verdictSchema constrains the structuring capability to the verdict shape.
var verdictSchema = []byte(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "sentiment": {"type": "string", "enum": ["POSITIVE", "NEGATIVE", "NEUTRAL"]},
    "explanation": {"type": "string"}
  },
  "required": ["title", "score", "sentiment", "explanation"]
}`)

// Aggregator merges the combined chunk summaries into one structured
// verdict. Any capability error or schema violation is a hard failure for
// the submission.
type Aggregator struct {
	gen    ports.TextGenerator
	logger *slog.Logger
}

// NewAggregator wires the structuring capability.
func NewAggregator(gen ports.TextGenerator, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{gen: gen, logger: log}
}

// Aggregate requests a structured verdict for the combined summary and
// validates the payload. Sentiment is the one lenient field: anything
// outside the allowed set becomes NEUTRAL instead of failing.
func (a *Aggregator) Aggregate(ctx context.Context, sub domain.Submission, combined string) (domain.EvaluationVerdict, error) {
	raw, err := a.gen.Structure(ctx, buildVerdictPrompt(sub, combined), verdictSchema)
	if err != nil {
		return domain.EvaluationVerdict{}, fmt.Errorf("structure verdict: %w", err)
	}

	var payload struct {
		Title       *string  `json:"title"`
		Score       *float64 `json:"score"`
		Sentiment   string   `json:"sentiment"`
		Explanation *string  `json:"explanation"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.EvaluationVerdict{}, fmt.Errorf("decode verdict payload: %w", err)
	}

	if payload.Title == nil || strings.TrimSpace(*payload.Title) == "" {
		return domain.EvaluationVerdict{}, fmt.Errorf("verdict payload missing title")
	}
	if payload.Score == nil {
		return domain.EvaluationVerdict{}, fmt.Errorf("verdict payload missing score")
	}
	if payload.Explanation == nil || strings.TrimSpace(*payload.Explanation) == "" {
		return domain.EvaluationVerdict{}, fmt.Errorf("verdict payload missing explanation")
	}

	return domain.EvaluationVerdict{
		Title:       strings.TrimSpace(*payload.Title),
		Score:       clampScore(*payload.Score),
		Sentiment:   domain.NormalizeSentiment(payload.Sentiment),
		Explanation: strings.TrimSpace(*payload.Explanation),
	}, nil
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

func buildVerdictPrompt(sub domain.Submission, combined string) string {
	var b strings.Builder

	b.WriteString("Below are section summaries of a deal document, separated by '---'. ")
	b.WriteString("Produce an overall evaluation of the deal")
	if sub.Name != "" {
		fmt.Fprintf(&b, " %q", sub.Name)
	}
	b.WriteString(": a short title, a quality score from 0 to 100, an overall sentiment ")
	b.WriteString("(POSITIVE, NEGATIVE, or NEUTRAL), and an explanation of the score. ")
	b.WriteString("Sections marked as processing errors carry no signal; judge from the rest.\n\n")
	b.WriteString(combined)

	return b.String()
}
