package integrations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/julianshen/autodoc/internal/docgen"
)

// CachingCompleter memoizes successful completions keyed by prompt and token
// ceiling. Errors are never cached.
type CachingCompleter struct {
	next  docgen.LLMCompleter
	cache *lru.Cache[string, string]
}

// NewCachingCompleter wraps next with an LRU of the given size. A
// non-positive size disables caching and next is returned unchanged.
func NewCachingCompleter(next docgen.LLMCompleter, size int) (docgen.LLMCompleter, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating completion cache: %w", err)
	}
	return &CachingCompleter{next: next, cache: cache}, nil
}

// Complete returns the cached text for an identical request, or delegates and
// stores the result.
func (c *CachingCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	key := cacheKey(prompt, maxTokens)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}
	text, err := c.next.Complete(ctx, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// Len reports how many completions are cached.
func (c *CachingCompleter) Len() int {
	return c.cache.Len()
}

func cacheKey(prompt string, maxTokens int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\x00%s", maxTokens, prompt)))
	return hex.EncodeToString(sum[:])
}
