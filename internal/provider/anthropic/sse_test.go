package anthropic

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectSSEEvents drains an sseScanner into a slice for testing.
func collectSSEEvents(r io.Reader) ([]sseEvent, error) {
	s := newSSEScanner(r)
	var events []sseEvent
	for s.Next() {
		events = append(events, s.Event())
	}
	return events, s.Err()
}

func TestSSEScannerEvents(t *testing.T) {
	input := `event: message_start
data: {"type":"message_start","message":{"usage":{"input_tokens":12}}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"# Overview"}}

event: message_stop
data: {"type":"message_stop"}

`

	events, err := collectSSEEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "message_start", events[0].Event)
	assert.Contains(t, events[0].Data, `"input_tokens":12`)
	assert.Equal(t, "content_block_delta", events[1].Event)
	assert.Contains(t, events[1].Data, `"text":"# Overview"`)
	assert.Equal(t, "message_stop", events[2].Event)
}

func TestSSEScannerEmpty(t *testing.T) {
	events, err := collectSSEEvents(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSSEScannerMultilineData(t *testing.T) {
	input := "event: test\ndata: first line\ndata: second line\n\n"
	events, err := collectSSEEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "first line\nsecond line", events[0].Data)
}

func TestSSEScannerNoTrailingNewline(t *testing.T) {
	input := "event: test\ndata: some data"
	events, err := collectSSEEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "test", events[0].Event)
	assert.Equal(t, "some data", events[0].Data)
}

func TestSSEScannerSkipsCommentsAndBlankRuns(t *testing.T) {
	input := ": keep-alive\n\n\nevent: ping\ndata: {}\n\n"

	events, err := collectSSEEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ping", events[0].Event)
}

func TestSSEScannerLongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	input := "event: content_block_delta\ndata: " + long + "\n\n"

	events, err := collectSSEEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Len(t, events[0].Data, len(long))
}

func TestSSEScannerStreamsIncrementally(t *testing.T) {
	input := "event: first\ndata: one\n\nevent: second\ndata: two\n\n"
	s := newSSEScanner(strings.NewReader(input))

	require.True(t, s.Next())
	assert.Equal(t, "first", s.Event().Event)

	require.True(t, s.Next())
	assert.Equal(t, "two", s.Event().Data)

	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}
