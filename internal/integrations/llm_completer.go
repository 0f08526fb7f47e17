package integrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianshen/autodoc/internal/provider"
)

// LLMCompleter wraps an LLMProvider to collect streamed text into a single string.
type LLMCompleter struct {
	provider    provider.LLMProvider
	model       string
	temperature *float64
	system      string
}

// CompleterOption configures an LLMCompleter.
type CompleterOption func(*LLMCompleter)

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(t float64) CompleterOption {
	return func(c *LLMCompleter) { c.temperature = provider.Temperature(t) }
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(s string) CompleterOption {
	return func(c *LLMCompleter) { c.system = s }
}

// NewLLMCompleter creates a new LLMCompleter.
func NewLLMCompleter(p provider.LLMProvider, model string, opts ...CompleterOption) *LLMCompleter {
	c := &LLMCompleter{provider: p, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a prompt to the LLM and returns the full response text.
// The event channel is always drained so the provider goroutine can exit.
func (c *LLMCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := provider.CompletionRequest{
		Model:       c.model,
		System:      c.system,
		Messages:    []provider.Message{provider.NewUserMessage(prompt)},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	}

	ch, err := c.provider.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	var b strings.Builder
	var streamErr error
	for evt := range ch {
		switch evt.Type {
		case provider.EventTextDelta:
			if streamErr == nil {
				b.WriteString(evt.Text)
			}
		case provider.EventError:
			if streamErr == nil {
				streamErr = evt.Error
			}
		}
	}
	if streamErr != nil {
		return "", fmt.Errorf("llm stream error: %w", streamErr)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	return b.String(), nil
}
