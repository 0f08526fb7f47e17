package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/julianshen/autodoc/internal/provider"
)

func init() {
	provider.RegisterProvider("gemini", func(ep provider.Endpoint) (provider.LLMProvider, error) {
		return New(context.Background(), ep.APIKey, ep.BaseURL)
	})
}

// Provider streams completions from the Gemini API through the genai SDK.
type Provider struct {
	cli *genai.Client
}

// New creates a Gemini provider. baseURL is optional and overrides the SDK
// default endpoint.
func New(ctx context.Context, apiKey, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini provider requires an API key")
	}
	cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Provider{cli: cli}, nil
}

// Stream starts a streaming generation. The SDK iterator is drained on a
// separate goroutine that converts each chunk into StreamEvents.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	if req.Model == "" {
		return nil, errors.New("model is required")
	}

	contents := buildContents(req.Messages)
	cfg := buildConfig(req)

	ch := make(chan provider.StreamEvent)
	go func() {
		defer close(ch)

		send := func(evt provider.StreamEvent) bool {
			select {
			case ch <- evt:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var usage *genai.GenerateContentResponseUsageMetadata
		for resp, err := range p.cli.Models.GenerateContentStream(ctx, req.Model, contents, cfg) {
			if err != nil {
				send(provider.StreamEvent{Type: provider.EventError, Error: err})
				return
			}
			if resp.UsageMetadata != nil {
				usage = resp.UsageMetadata
			}
			if text := responseText(resp); text != "" {
				if !send(provider.StreamEvent{Type: provider.EventTextDelta, Text: text}) {
					return
				}
			}
		}

		if usage != nil {
			if !send(provider.StreamEvent{
				Type:         provider.EventUsage,
				InputTokens:  int(usage.PromptTokenCount),
				OutputTokens: int(usage.CandidatesTokenCount),
			}) {
				return
			}
		}
		send(provider.StreamEvent{Type: provider.EventStop})
	}()

	return ch, nil
}

func buildContents(msgs []provider.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func buildConfig(req provider.CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	return cfg
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text += part.Text
	}
	return text
}
