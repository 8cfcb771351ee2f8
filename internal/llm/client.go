// Package llm generates reply text through an OpenAI-compatible chat
// completion endpoint. The API key and model come from the per-user assistant
// profile; the base URL and fallback model come from configuration.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrEmptyResponse indicates the model returned no usable choice.
var ErrEmptyResponse = errors.New("llm returned empty response")

const (
	// maxReplyChars is the hard ceiling on generated reply length. Platforms
	// like Twitter reject longer bodies outright; the rest just read badly.
	maxReplyChars = 500

	// completionMaxTokens bounds the model output well under maxReplyChars.
	completionMaxTokens = 150
	// completionTemperature keeps replies varied without drifting off-topic.
	completionTemperature = 0.8

	maxErrBody = 2048
)

// APIError is a non-2xx response from the completion endpoint.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("llm completion: status %d: %s", e.Status, e.Body)
}

// Client calls an OpenAI-compatible /chat/completions endpoint. Safe for
// concurrent use.
type Client struct {
	// BaseURL is the API root without a trailing slash,
	// e.g. "https://api.openai.com/v1".
	BaseURL string
	// DefaultModel is used when the assistant profile names none.
	DefaultModel string
	// HTTP is the outbound client; defaults to http.DefaultClient.
	HTTP *http.Client
}

// NewClient constructs a Client for the given endpoint.
func NewClient(baseURL, defaultModel string, httpClient *http.Client) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		DefaultModel: defaultModel,
		HTTP:         httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete runs one chat completion and returns the trimmed, length-capped
// reply text. One attempt, no retry; a failed completion fails the run.
func (c *Client) Complete(ctx context.Context, apiKey, model, systemPrompt, userMessage string) (string, error) {
	if model == "" {
		model = c.DefaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return "", &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return truncate(reply, maxReplyChars), nil
}

// truncate caps s at n runes. Rune-based so multi-byte text is never split
// mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
