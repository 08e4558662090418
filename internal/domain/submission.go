package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Submission is one unit of work entering the pipeline: a deal document
// plus the structured attributes captured at intake.
type Submission struct {
	ID              string  `json:"id"`
	UserID          string  `json:"userId"`
	Name            string  `json:"name"`
	Content         string  `json:"content"`
	Brokerage       string  `json:"brokerage"`
	Revenue         float64 `json:"revenue"`
	EBITDA          float64 `json:"ebitda"`
	AskingPrice     float64 `json:"askingPrice"`
	GrossRevenue    float64 `json:"grossRevenue"`
	Industry        string  `json:"industry"`
	DealType        string  `json:"dealType"`
	SourceWebsite   string  `json:"sourceWebsite"`
	CompanyLocation string  `json:"companyLocation"`
}

// Validate rejects submissions that cannot be attributed or persisted.
// Empty content is legal here; the pipeline reports it as a processing
// failure rather than a decode failure.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("submission missing id")
	}
	if strings.TrimSpace(s.UserID) == "" {
		return errors.New("submission missing user id")
	}
	return nil
}

// QueueMessage is the envelope that rides the work list. Producers that
// predate the envelope push bare Submission records; DecodeQueueMessage
// accepts both.
type QueueMessage struct {
	MessageID  string     `json:"messageId"`
	Submission Submission `json:"submission"`
}

// DecodeQueueMessage parses a queue payload into a typed message. The
// message id falls back to the submission id when the producer did not
// assign one, so dedup markers always have something to key on.
func DecodeQueueMessage(payload []byte) (QueueMessage, error) {
	var msg QueueMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return QueueMessage{}, fmt.Errorf("decode queue message: %w", err)
	}

	if msg.Submission.ID == "" {
		var sub Submission
		if err := json.Unmarshal(payload, &sub); err != nil {
			return QueueMessage{}, fmt.Errorf("decode submission: %w", err)
		}
		msg.Submission = sub
	}

	if err := msg.Submission.Validate(); err != nil {
		return QueueMessage{}, err
	}

	if msg.MessageID == "" {
		msg.MessageID = msg.Submission.ID
	}

	return msg, nil
}

// Chunk is an ordered, bounded segment of a submission's content.
type Chunk struct {
	Index int
	Body  string
}

// ChunkSummary holds the evaluation result for one chunk. Failed entries
// carry the error sentinel as their text so the sequence always aligns
// with the chunk sequence.
type ChunkSummary struct {
	Index  int
	Text   string
	Failed bool
}

// Sentiment classifies the overall read on a deal.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// NormalizeSentiment maps capability output onto the allowed set; anything
// unrecognized becomes NEUTRAL.
func NormalizeSentiment(raw string) Sentiment {
	switch Sentiment(strings.ToUpper(strings.TrimSpace(raw))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// EvaluationVerdict is the structured result produced once per submission.
type EvaluationVerdict struct {
	Title       string    `json:"title"`
	Score       float64   `json:"score"`
	Sentiment   Sentiment `json:"sentiment"`
	Explanation string    `json:"explanation"`
}

// ProcessingRecord is the durable outcome persisted per submission;
// created once, never mutated.
type ProcessingRecord struct {
	SubmissionID    string
	Verdict         EvaluationVerdict
	CombinedSummary string
	CreatedAt       time.Time
}

// JobStatus enumerates the lifecycle states published per submission.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// Notification announces a terminal submission outcome to downstream
// consumers.
type Notification struct {
	UserID       string    `json:"userId"`
	SubmissionID string    `json:"submissionId"`
	Status       JobStatus `json:"status"`
	Name         string    `json:"name"`
}

// DeadLetter captures a verdict that was computed but could not be
// persisted, so it can be reconciled out of band.
type DeadLetter struct {
	SubmissionID    string            `json:"submissionId"`
	Verdict         EvaluationVerdict `json:"verdict"`
	CombinedSummary string            `json:"combinedSummary"`
	FailedAt        time.Time         `json:"failedAt"`
}
