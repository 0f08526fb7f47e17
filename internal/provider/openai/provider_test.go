package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/autodoc/internal/provider"
)

const sseBody = `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o","choices":[{"index":0,"delta":{"content":"## Purpose"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o","choices":[{"index":0,"delta":{"content":"\nParses input."},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o","choices":[],"usage":{"prompt_tokens":42,"completion_tokens":7}}

data: [DONE]

`

func TestStreamTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://myapp.com", r.Header.Get("HTTP-Referer"))

		var body apiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)
		if assert.NotNil(t, body.StreamOptions) {
			assert.True(t, body.StreamOptions.IncludeUsage)
		}
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "user", body.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sseBody))
	}))
	defer server.Close()

	p := New(server.URL, "test-key", map[string]string{"HTTP-Referer": "https://myapp.com"})
	var _ provider.LLMProvider = p

	ch, err := p.Stream(context.Background(), provider.CompletionRequest{
		Model:       "gpt-4o",
		System:      "You write documentation.",
		Messages:    []provider.Message{provider.NewUserMessage("Document parse.go")},
		MaxTokens:   4096,
		Temperature: provider.Temperature(0.2),
	})
	require.NoError(t, err)

	var text string
	var usage provider.StreamEvent
	var hasStop bool
	for evt := range ch {
		switch evt.Type {
		case provider.EventTextDelta:
			text += evt.Text
		case provider.EventUsage:
			usage = evt
		case provider.EventStop:
			hasStop = true
		}
	}
	assert.Equal(t, "## Purpose\nParses input.", text)
	assert.Equal(t, 42, usage.InputTokens)
	assert.Equal(t, 7, usage.OutputTokens)
	assert.True(t, hasStop)
}

func TestStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key"}}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "bad", nil).Stream(context.Background(), provider.CompletionRequest{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestStreamMalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data: {not json}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	ch, err := New(server.URL, "k", nil).Stream(context.Background(), provider.CompletionRequest{Model: "m"})
	require.NoError(t, err)

	var types []string
	for evt := range ch {
		types = append(types, evt.Type)
	}
	assert.Equal(t, []string{provider.EventError, provider.EventStop}, types)
}

func TestBuildRequestBodyTemperatureOptional(t *testing.T) {
	p := New("http://localhost", "", nil)
	body, err := p.buildRequestBody(provider.CompletionRequest{Model: "m", MaxTokens: 5})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "temperature")
}
