package integrations

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/julianshen/autodoc/internal/docgen"
)

// RateLimitedCompleter spaces calls to the wrapped completer according to a
// token bucket shared by every worker of a run.
type RateLimitedCompleter struct {
	next    docgen.LLMCompleter
	limiter *rate.Limiter
}

// NewRateLimitedCompleter wraps next with a limiter allowing rps requests per
// second and bursts of burst. A non-positive rps disables limiting and next is
// returned unchanged.
func NewRateLimitedCompleter(next docgen.LLMCompleter, rps float64, burst int) docgen.LLMCompleter {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedCompleter{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Complete waits for a token, then delegates.
func (c *RateLimitedCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return c.next.Complete(ctx, prompt, maxTokens)
}
