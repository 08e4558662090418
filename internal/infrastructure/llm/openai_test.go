package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"DealScreener/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.LLMConfig{
		BaseURL: server.URL,
		Model:   "gpt-test",
		APIKey:  "secret",
	})
}

func completionResponse(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSONString(content) + `}}]}`
}

func mustJSONString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing auth header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("a crisp summary")))
	})

	got, err := client.Summarize(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "a crisp summary" {
		t.Fatalf("summary = %q", got)
	}
	if captured["model"] != "gpt-test" {
		t.Fatalf("model = %v", captured["model"])
	}
	if _, ok := captured["response_format"]; ok {
		t.Fatal("summarize must not request json mode")
	}
}

func TestSummarizeUpstreamError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusTooManyRequests)
	})

	if _, err := client.Summarize(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 429")
	}
}

func TestStructureRequestsJSONMode(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(completionResponse(`{"title":"t","score":50}`)))
	})

	schema := []byte(`{"type":"object"}`)
	raw, err := client.Structure(context.Background(), "structure this", schema)
	if err != nil {
		t.Fatalf("structure: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("result is not json: %v", err)
	}

	format, ok := captured["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("response_format = %v", captured["response_format"])
	}

	messages, _ := captured["messages"].([]any)
	if len(messages) == 0 {
		t.Fatal("request has no messages")
	}
	system, _ := messages[0].(map[string]any)
	if content, _ := system["content"].(string); !strings.Contains(content, `"type":"object"`) {
		t.Fatalf("schema not embedded in system message: %q", content)
	}
}

func TestStructureRejectsNonJSON(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completionResponse("Sure! Here is the JSON you asked for: {")))
	})

	if _, err := client.Structure(context.Background(), "x", []byte(`{}`)); err == nil {
		t.Fatal("expected error for invalid JSON payload")
	}
}

func TestEmptyChoices(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := client.Summarize(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
