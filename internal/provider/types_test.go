package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello world")
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "hello world", msg.Content)
}

func TestTemperature(t *testing.T) {
	a := Temperature(0.2)
	b := Temperature(0.2)
	require.NotNil(t, a)
	assert.Equal(t, 0.2, *a)
	assert.NotSame(t, a, b)
}

func TestCompletionRequestJSON(t *testing.T) {
	req := CompletionRequest{
		Model:     "claude-sonnet-4-5",
		Messages:  []Message{NewUserMessage("Document this file")},
		MaxTokens: 4096,
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "claude-sonnet-4-5", decoded["model"])
	assert.Equal(t, float64(4096), decoded["max_tokens"])
	_, hasSystem := decoded["system"]
	assert.False(t, hasSystem, "empty system should be omitted")
	_, hasTemp := decoded["temperature"]
	assert.False(t, hasTemp, "nil temperature should be omitted")

	req.Temperature = Temperature(0.2)
	data, err = json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"temperature":0.2`)
}
