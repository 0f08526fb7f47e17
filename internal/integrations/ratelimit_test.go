package integrations

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls atomic.Int32
	err   error
}

func (c *countingCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return "re: " + prompt, nil
}

func TestRateLimitedCompleterDisabled(t *testing.T) {
	next := &countingCompleter{}
	assert.Same(t, next, NewRateLimitedCompleter(next, 0, 5))
}

func TestRateLimitedCompleterSpacesCalls(t *testing.T) {
	next := &countingCompleter{}
	c := NewRateLimitedCompleter(next, 20, 1)

	start := time.Now()
	for range 3 {
		text, err := c.Complete(context.Background(), "x", 10)
		require.NoError(t, err)
		assert.Equal(t, "re: x", text)
	}
	// One token up front, then two more at 50ms intervals.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestRateLimitedCompleterHonoursContext(t *testing.T) {
	next := &countingCompleter{}
	c := NewRateLimitedCompleter(next, 0.001, 1)

	_, err := c.Complete(context.Background(), "first", 10)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "second", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, int32(1), next.calls.Load())
}
