package integrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingCompleterHit(t *testing.T) {
	next := &countingCompleter{}
	c, err := NewCachingCompleter(next, 8)
	require.NoError(t, err)

	for range 3 {
		text, err := c.Complete(context.Background(), "doc a.go", 100)
		require.NoError(t, err)
		assert.Equal(t, "re: doc a.go", text)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	_, err = c.Complete(context.Background(), "doc a.go", 200)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load(), "token ceiling is part of the key")
	assert.Equal(t, 2, c.(*CachingCompleter).Len())
}

func TestCachingCompleterSkipsErrors(t *testing.T) {
	next := &countingCompleter{err: assert.AnError}
	c, err := NewCachingCompleter(next, 8)
	require.NoError(t, err)

	for range 2 {
		_, err := c.Complete(context.Background(), "p", 10)
		require.ErrorIs(t, err, assert.AnError)
	}
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Zero(t, c.(*CachingCompleter).Len())
}

func TestCachingCompleterEvicts(t *testing.T) {
	next := &countingCompleter{}
	c, err := NewCachingCompleter(next, 1)
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = c.Complete(ctx, "a", 1)
	_, _ = c.Complete(ctx, "b", 1)
	_, _ = c.Complete(ctx, "a", 1)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestCachingCompleterDisabled(t *testing.T) {
	next := &countingCompleter{}
	c, err := NewCachingCompleter(next, 0)
	require.NoError(t, err)
	assert.Same(t, next, c)
}
