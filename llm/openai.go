// Package llm provides the summarization capability over the OpenAI
// chat-completions API. A transport or API failure is an error; an explicit
// "None"-style reply is a successful result that the caller interprets as
// "no estimate".
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"auction-sniper/utils"
)

// Summarizer turns a prompt into free-text output.
type Summarizer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Error is an API failure with an explicit retry classification.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm: status %d: %s", e.StatusCode, e.Message)
}

// Class maps the API status onto a retry class.
func (e *Error) Class() utils.ErrorClass {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return utils.ClassRateLimited
	case e.StatusCode >= 500:
		return utils.ClassTransient
	default:
		return utils.ClassPermanent
	}
}

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the chat-completions endpoint.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a client for the given model with a per-request
// timeout.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
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

// Complete sends prompt as a single user message and returns the assistant
// reply text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &Error{StatusCode: resp.StatusCode}
		}
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		aerr := &Error{StatusCode: resp.StatusCode}
		if parsed.Error != nil {
			aerr.Message = parsed.Error.Message
		}
		return "", aerr
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return parsed.Choices[0].Message.Content, nil
}
