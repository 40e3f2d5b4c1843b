package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	openaiBaseURL = "https://api.openai.com/v1/chat/completions"

	DefaultOpenAIModel = "gpt-4"
)

// OpenAIClient is the fallback chat-completions client, used when only
// OPENAI_API_KEY is configured.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: openaiBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAIClient) Configured() bool { return c.apiKey != "" }

type openaiRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (*Completion, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	messages := []openaiMessage{}
	if systemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(openaiRequest{
		Model:       DefaultOpenAIModel,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, GenError.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, GenError.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, GenError.Wrap(fmt.Errorf("%w: %v", ErrProvider, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, GenError.Wrap(err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openaiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, GenError.Wrap(fmt.Errorf("%w: openai %d: %s", ErrProvider, resp.StatusCode, apiErr.Error.Message))
		}
		return nil, GenError.Wrap(fmt.Errorf("%w: openai status %d", ErrProvider, resp.StatusCode))
	}

	var parsed openaiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, GenError.Wrap(err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	return &Completion{
		Text:         parsed.Choices[0].Message.Content,
		Model:        parsed.Model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}
