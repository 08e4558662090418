package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"DealScreener/internal/domain"
	"DealScreener/internal/metrics"
	"DealScreener/internal/ports"
)

// combinedSummaryDelimiter separates chunk sections in the combined
// summary handed to the aggregator.
const combinedSummaryDelimiter = "\n\n---\n\n"

// ChunkEvaluator summarizes each chunk through the external capability.
// Per-chunk failures are swallowed and replaced with an error sentinel so
// the output always aligns one-to-one with the input chunks.
type ChunkEvaluator struct {
	gen     ports.TextGenerator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewChunkEvaluator wires the text-generation capability.
func NewChunkEvaluator(gen ports.TextGenerator, m *metrics.Metrics, log *slog.Logger) *ChunkEvaluator {
	if log == nil {
		log = slog.Default()
	}
	return &ChunkEvaluator{gen: gen, metrics: m, logger: log}
}

// Evaluate produces exactly one summary per chunk, in chunk order. There
// is no per-chunk retry; retries belong to the submission level.
func (e *ChunkEvaluator) Evaluate(ctx context.Context, sub domain.Submission, chunks []domain.Chunk) []domain.ChunkSummary {
	summaries := make([]domain.ChunkSummary, 0, len(chunks))

	for _, chunk := range chunks {
		started := time.Now()
		text, err := e.gen.Summarize(ctx, buildChunkPrompt(sub, chunk, len(chunks)))
		e.metrics.ObserveChunk(time.Since(started))

		if err != nil || strings.TrimSpace(text) == "" {
			e.logger.Warn("chunk evaluation failed",
				"submission", sub.ID, "chunk", chunk.Index, "error", err)
			summaries = append(summaries, domain.ChunkSummary{
				Index:  chunk.Index,
				Text:   chunkErrorSentinel(chunk.Index),
				Failed: true,
			})
			continue
		}

		summaries = append(summaries, domain.ChunkSummary{Index: chunk.Index, Text: text})
	}

	return summaries
}

// chunkErrorSentinel is the stand-in text for a failed chunk; numbering is
// 1-based for readability downstream.
func chunkErrorSentinel(index int) string {
	return fmt.Sprintf("[error processing chunk %d]", index+1)
}

// CombineSummaries joins chunk summaries with an explicit section
// delimiter, preserving chunk order.
func CombineSummaries(summaries []domain.ChunkSummary) string {
	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, combinedSummaryDelimiter)
}

func buildChunkPrompt(sub domain.Submission, chunk domain.Chunk, total int) string {
	var b strings.Builder

	b.WriteString("You are screening an investment deal. Summarize the document section below, ")
	b.WriteString("focusing on financial health, risks, and anything that affects deal quality.\n\n")

	b.WriteString("Deal context:\n")
	writeContextLine(&b, "Name", sub.Name)
	writeContextLine(&b, "Brokerage", sub.Brokerage)
	writeContextLine(&b, "Industry", sub.Industry)
	writeContextLine(&b, "Deal type", sub.DealType)
	writeContextLine(&b, "Location", sub.CompanyLocation)
	writeContextLine(&b, "Source", sub.SourceWebsite)
	if sub.Revenue > 0 {
		fmt.Fprintf(&b, "- Revenue: %.2f\n", sub.Revenue)
	}
	if sub.GrossRevenue > 0 {
		fmt.Fprintf(&b, "- Gross revenue: %.2f\n", sub.GrossRevenue)
	}
	if sub.EBITDA > 0 {
		fmt.Fprintf(&b, "- EBITDA: %.2f\n", sub.EBITDA)
	}
	if sub.AskingPrice > 0 {
		fmt.Fprintf(&b, "- Asking price: %.2f\n", sub.AskingPrice)
	}

	fmt.Fprintf(&b, "\nSection %d of %d:\n%s", chunk.Index+1, total, chunk.Body)
	return b.String()
}

func writeContextLine(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
