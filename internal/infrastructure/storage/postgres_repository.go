package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"DealScreener/internal/domain"
	"DealScreener/internal/ports"
)

// ErrDuplicateRecord reports an insert against a submission id that
// already has a ProcessingRecord.
var ErrDuplicateRecord = errors.New("processing record already exists")

const uniqueViolation = "23505"

// RecordRepository persists evaluation verdicts into Postgres. Records
// are insert-only: there is no update path, so a duplicate key surfaces
// as ErrDuplicateRecord rather than an upsert.
type RecordRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RecordRepository = (*RecordRepository)(nil)

// NewRecordRepository wires a sql.DB implementation.
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts the record for a successfully evaluated submission.
func (r *RecordRepository) Create(ctx context.Context, rec domain.ProcessingRecord) error {
	query, args, err := r.insertQuery(rec)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("record %s: %w", rec.SubmissionID, ErrDuplicateRecord)
		}
		return fmt.Errorf("insert processing record: %w", err)
	}

	return nil
}

func (r *RecordRepository) insertQuery(rec domain.ProcessingRecord) (string, []any, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return r.builder.
		Insert("processing_records").
		Columns(
			"submission_id",
			"title",
			"score",
			"sentiment",
			"explanation",
			"combined_summary",
			"created_at",
		).
		Values(
			rec.SubmissionID,
			rec.Verdict.Title,
			rec.Verdict.Score,
			string(rec.Verdict.Sentiment),
			rec.Verdict.Explanation,
			rec.CombinedSummary,
			createdAt,
		).
		ToSql()
}
