package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimited throttles outbound requests of the wrapped provider.
type rateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// rateLimitedVision is rateLimited for providers that accept images.
type rateLimitedVision struct {
	rateLimited
	vision VisionProvider
}

// NewRateLimited wraps p so that at most rps requests per second (with the
// given burst) reach it. rps <= 0 returns p unchanged. The result keeps the
// VisionProvider capability of p.
func NewRateLimited(p Provider, rps float64, burst int) Provider {
	if rps <= 0 || p == nil {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	rl := rateLimited{inner: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
	if v, ok := p.(VisionProvider); ok {
		return &rateLimitedVision{rateLimited: rl, vision: v}
	}
	return &rl
}

func (r *rateLimited) Name() string {
	return r.inner.Name()
}

// wait blocks until the limiter allows a request.
func (r *rateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (r *rateLimited) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Complete(ctx, prompt, opts)
}

func (r *rateLimitedVision) CompleteWithImage(ctx context.Context, prompt string, img Image, opts CompletionOpts) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.vision.CompleteWithImage(ctx, prompt, img, opts)
}
