package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"meethub/internal/config"
)

// OpenAISummarizer calls an OpenAI-compatible chat completions API.
// When no API key is configured it returns a mock summary so the rest
// of the flow stays exercisable.
type OpenAISummarizer struct {
	cfg    *config.AIConfig
	client *http.Client
}

func NewOpenAISummarizer(cfg *config.AIConfig, timeout time.Duration) *OpenAISummarizer {
	return &OpenAISummarizer{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if !s.cfg.SummaryEnabled() {
		return s.mockSummarize(transcript), nil
	}

	reqBody := chatRequest{
		Model: s.cfg.SummaryModel,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a helpful assistant that summarizes meetings and extracts action items.",
			},
			{
				Role:    "user",
				Content: "Please provide a concise summary of the following meeting transcript and list any action items:\n\n" + transcript,
			},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.SummaryBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.SummaryAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summary status %d: %s", resp.StatusCode, errBody)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode summary response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty summary response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (s *OpenAISummarizer) mockSummarize(transcript string) string {
	return "Summary unavailable: no summarization provider is configured."
}
