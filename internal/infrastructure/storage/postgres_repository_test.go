package storage

import (
	"strings"
	"testing"
	"time"

	"DealScreener/internal/domain"
)

func TestInsertQuery(t *testing.T) {
	t.Parallel()

	repo := NewRecordRepository(nil)
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	query, args, err := repo.insertQuery(domain.ProcessingRecord{
		SubmissionID: "deal-1",
		Verdict: domain.EvaluationVerdict{
			Title:       "Solid deal",
			Score:       74,
			Sentiment:   domain.SentimentPositive,
			Explanation: "Healthy margins.",
		},
		CombinedSummary: "combined text",
		CreatedAt:       createdAt,
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	if !strings.HasPrefix(query, "INSERT INTO processing_records") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "$7") {
		t.Fatalf("expected dollar placeholders, got: %s", query)
	}
	if strings.Contains(strings.ToUpper(query), "ON CONFLICT") {
		t.Fatalf("insert must not upsert: %s", query)
	}

	if len(args) != 7 {
		t.Fatalf("expected 7 args, got %d", len(args))
	}
	if args[0] != "deal-1" || args[3] != "POSITIVE" || args[6] != createdAt {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestInsertQueryDefaultsCreatedAt(t *testing.T) {
	t.Parallel()

	repo := NewRecordRepository(nil)

	_, args, err := repo.insertQuery(domain.ProcessingRecord{SubmissionID: "deal-2"})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	ts, ok := args[len(args)-1].(time.Time)
	if !ok || ts.IsZero() {
		t.Fatalf("created_at not defaulted: %v", args[len(args)-1])
	}
}
