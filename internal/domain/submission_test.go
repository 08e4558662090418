package domain

import (
	"testing"
)

func TestDecodeQueueMessageEnvelope(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"messageId":"msg-1","submission":{"id":"deal-1","userId":"user-1","name":"HVAC roll-up","content":"body"}}`)
	msg, err := DecodeQueueMessage(payload)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if msg.MessageID != "msg-1" {
		t.Fatalf("unexpected message id %s", msg.MessageID)
	}
	if msg.Submission.ID != "deal-1" || msg.Submission.UserID != "user-1" {
		t.Fatalf("submission not decoded: %+v", msg.Submission)
	}
}

func TestDecodeQueueMessageBareSubmission(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"deal-2","userId":"user-9","content":"text","brokerage":"Main Street Brokers"}`)
	msg, err := DecodeQueueMessage(payload)
	if err != nil {
		t.Fatalf("decode bare submission: %v", err)
	}
	if msg.Submission.Brokerage != "Main Street Brokers" {
		t.Fatalf("attributes lost: %+v", msg.Submission)
	}
	if msg.MessageID != "deal-2" {
		t.Fatalf("message id should fall back to submission id, got %s", msg.MessageID)
	}
}

func TestDecodeQueueMessageRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed json":  `{"id":"deal-3"`,
		"missing id":      `{"userId":"user-1","content":"text"}`,
		"missing user id": `{"id":"deal-3","content":"text"}`,
		"not an object":   `"just a string"`,
	}

	for name, payload := range cases {
		if _, err := DecodeQueueMessage([]byte(payload)); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestNormalizeSentiment(t *testing.T) {
	t.Parallel()

	cases := map[string]Sentiment{
		"POSITIVE":  SentimentPositive,
		"positive":  SentimentPositive,
		" Negative": SentimentNegative,
		"NEUTRAL":   SentimentNeutral,
		"bullish":   SentimentNeutral,
		"":          SentimentNeutral,
	}

	for raw, want := range cases {
		if got := NormalizeSentiment(raw); got != want {
			t.Fatalf("NormalizeSentiment(%q) = %s, want %s", raw, got, want)
		}
	}
}
