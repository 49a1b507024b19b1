package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const systemPrompt = "You are a clinical documentation assistant. Summarize the " +
	"following FHIR bundle as a short, neutral, human-readable narrative for a " +
	"clinician. Do not invent findings that are not in the bundle."

// Client calls an external chat-completion service to turn a FHIR bundle
// into a free-text narrative. The service is an optional collaborator: its
// failures are reported to the caller and never affect pipeline correctness.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a narrative client. baseURL is the API root (the client
// appends /chat/completions), apiKey the bearer credential, model the
// completion model name.
func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has the credentials it needs.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize sends the bundle to the external service and returns the
// generated narrative.
func (c *Client) Summarize(ctx context.Context, bundle map[string]interface{}) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("summary: narrative client is not configured")
	}

	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("summary: marshal bundle: %w", err)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(bundleJSON)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("summary: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary: narrative service call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("summary: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("summary: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("summary: narrative service returned %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("summary: narrative service returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("summary: narrative service returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
