package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	GenError = errs.Class("generator")

	// ErrNotConfigured means no provider API key is set; the operation was
	// never attempted.
	ErrNotConfigured = errors.New("no language model provider configured")
	// ErrProvider wraps upstream API failures.
	ErrProvider = errors.New("provider request failed")
	// ErrEmptyResponse means the provider answered with no usable text.
	ErrEmptyResponse = errors.New("provider returned empty response")
)

const (
	newsletterMaxTokens = 2000
	newsletterTemp      = 0.7

	newsletterSystemPrompt = `You are an expert newsletter writer. Your newsletters are clear,
engaging, and well-structured. Always start with a subject line prefixed with "Subject: "
on the first line, followed by the newsletter content.`
)

// Completion is a provider-agnostic LLM response.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Draft is a generated newsletter before rendering.
type Draft struct {
	Subject      string `json:"subject"`
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	SearchSource string `json:"search_source,omitempty"`
}

type completer interface {
	Configured() bool
	Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (*Completion, error)
}

// Generator turns a topic and style into a newsletter draft, preferring
// Anthropic and falling back to OpenAI when only that key is configured.
type Generator struct {
	anthropic *AnthropicClient
	openai    *OpenAIClient
	search    *SearchClient
	mockOK    bool
	log       *zap.Logger
}

func NewGenerator(anthropic *AnthropicClient, openai *OpenAIClient, search *SearchClient, mockFallback bool, log *zap.Logger) *Generator {
	return &Generator{
		anthropic: anthropic,
		openai:    openai,
		search:    search,
		mockOK:    mockFallback,
		log:       log,
	}
}

// Generate produces a draft. useSearch merges web-search context into the
// prompt. Retries are deliberately left to the caller.
func (g *Generator) Generate(ctx context.Context, topic, style string, useSearch bool) (*Draft, error) {
	if style == "" {
		style = "professional"
	}

	var searchSource string
	var items []SearchResult
	if useSearch && g.search != nil {
		resp := g.search.Search(ctx, topic, 5, g.mockOK)
		if resp.Success {
			items = resp.Results
			searchSource = resp.Source
		} else {
			g.log.Warn("search augmentation unavailable", zap.String("error", resp.Error))
		}
	}

	prompt := FormatPrompt(topic, style, items)

	provider := g.pickProvider()
	if provider == nil {
		return nil, ErrNotConfigured
	}

	completion, err := provider.Complete(ctx, prompt, newsletterSystemPrompt, newsletterMaxTokens, newsletterTemp)
	if err != nil {
		return nil, err
	}

	subject, body := SplitSubject(completion.Text)
	return &Draft{
		Subject:      subject,
		Content:      body,
		Model:        completion.Model,
		SearchSource: searchSource,
	}, nil
}

func (g *Generator) pickProvider() completer {
	if g.anthropic != nil && g.anthropic.Configured() {
		return g.anthropic
	}
	if g.openai != nil && g.openai.Configured() {
		return g.openai
	}
	return nil
}

// FormatPrompt builds the newsletter prompt. Search results, when present,
// are embedded as context items the model should summarize from.
func FormatPrompt(topic, style string, items []SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a newsletter about %s.\n\nStyle: %s\n", topic, style)

	if len(items) > 0 {
		b.WriteString("\nBase the newsletter on the following content items:\n")
		for _, item := range items {
			fmt.Fprintf(&b, "- %s: %s\n", item.Title, item.Description)
		}
	}

	b.WriteString(`
Please structure your response as follows:
1. Start with a compelling subject line on the first line (prefix with "Subject: ")
2. Follow with the newsletter body including:
   - An engaging introduction
   - 3-5 interesting segments with key insights
   - Links to relevant resources
   - A brief conclusion
`)
	fmt.Fprintf(&b, "\nKeep the tone %s and make it engaging for readers.", style)
	return b.String()
}

// SplitSubject splits raw model output on the first newline. A leading
// "Subject:" prefix is stripped case-insensitively.
func SplitSubject(text string) (subject, body string) {
	text = strings.TrimSpace(text)
	subject = text
	if idx := strings.Index(text, "\n"); idx >= 0 {
		subject = text[:idx]
		body = strings.TrimSpace(text[idx+1:])
	}
	subject = strings.TrimSpace(subject)
	if len(subject) >= 8 && strings.EqualFold(subject[:8], "subject:") {
		subject = strings.TrimSpace(subject[8:])
	}
	return subject, body
}
