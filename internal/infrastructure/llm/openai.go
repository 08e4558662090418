package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"DealScreener/internal/config"
	"DealScreener/internal/ports"
)

const defaultTimeout = 60 * time.Second

// Client implements ports.TextGenerator backed by OpenAI-compatible
// chat-completion APIs.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.TextGenerator = (*Client)(nil)

// NewClient builds a client from configuration. Latency of the upstream
// capability runs into tens of seconds, hence the generous timeout.
func NewClient(cfg config.LLMConfig) *Client {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Summarize requests a free-text completion for the prompt.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	content, err := c.complete(ctx, "You summarize business documents precisely and concisely.", prompt, false)
	if err != nil {
		return "", err
	}
	return content, nil
}

// Structure requests a completion constrained to a single JSON object
// matching the given schema. The raw object comes back unvalidated
// beyond being well-formed JSON; field-level validation belongs to the
// caller.
func (c *Client) Structure(ctx context.Context, prompt string, schema []byte) ([]byte, error) {
	system := fmt.Sprintf(
		"Respond with a single JSON object and nothing else. The object must match this JSON schema:\n%s",
		schema)

	content, err := c.complete(ctx, system, prompt, true)
	if err != nil {
		return nil, err
	}

	raw := []byte(strings.TrimSpace(content))
	if !json.Valid(raw) {
		return nil, fmt.Errorf("capability returned invalid JSON")
	}
	return raw, nil
}

func (c *Client) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	if c.apiKey == "" || c.baseURL == "" || c.model == "" {
		return "", fmt.Errorf("llm client misconfigured")
	}

	request := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.2,
	}
	if jsonMode {
		request["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
