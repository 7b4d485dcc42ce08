package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TextGenerator produces short free text from a prompt. Used for report
// drafting and work-order suggestions; always best effort.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TextGenClient talks to an external text-generation HTTP endpoint
type TextGenClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewTextGenClient(baseURL, apiKey string) *TextGenClient {
	return &TextGenClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type textGenRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type textGenResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (c *TextGenClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(textGenRequest{Prompt: prompt, MaxTokens: 512})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("text generation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text generation returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var out textGenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("text generation error: %s", out.Error)
	}
	return out.Text, nil
}

// StaticTextGenerator returns canned text. Stand-in for offline runs and tests.
type StaticTextGenerator struct {
	Text string
	Err  error
}

func (s *StaticTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}
