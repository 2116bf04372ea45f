// Package generate runs the LLM rewrite call with per-model retries, model fallback
// and strict parsing of the JSON result contract.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/llm"
	"blogsmith/internal/logger"

	"github.com/sethvargo/go-retry"
)

// Options configures the retry policy.
type Options struct {
	Models        []string      // preference order used when a call names no models
	MaxAttempts   int           // attempts per model
	RateLimitStep time.Duration // wait is attempt × step after a rate limit or overload
	RetryDelay    time.Duration // wait after any other retryable failure
	Temperature   float32
}

// DefaultOptions returns the production retry policy.
func DefaultOptions() Options {
	return Options{
		Models:        []string{llm.DefaultModel},
		MaxAttempts:   3,
		RateLimitStep: 3 * time.Second,
		RetryDelay:    time.Second,
	}
}

// Engine produces a GenerationResult from a prompt.
type Engine struct {
	provider llm.Provider
	opts     Options
	onWait   func(model string, attempt int, wait time.Duration)
}

// New creates an Engine backed by provider. Zero option fields take their defaults.
func New(provider llm.Provider, opts Options) *Engine {
	def := DefaultOptions()
	if len(opts.Models) == 0 {
		opts.Models = def.Models
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.RateLimitStep <= 0 {
		opts.RateLimitStep = def.RateLimitStep
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	return &Engine{provider: provider, opts: opts}
}

// Models returns the default model preference order.
func (e *Engine) Models() []string {
	return append([]string(nil), e.opts.Models...)
}

// WorstCase bounds how long a Generate call over the default models can run when
// every attempt times out after callTimeout and waits the longest backoff.
func (e *Engine) WorstCase(callTimeout time.Duration) time.Duration {
	var perModel time.Duration
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		perModel += callTimeout
		if attempt == e.opts.MaxAttempts {
			break
		}
		perModel += max(time.Duration(attempt)*e.opts.RateLimitStep, e.opts.RetryDelay)
	}
	return perModel * time.Duration(len(e.opts.Models))
}

// Generate tries each model in order until one returns a response, then parses it.
// A response that cannot be parsed is terminal and is not retried.
func (e *Engine) Generate(ctx context.Context, prompt string, models []string) (*core.GenerationResult, error) {
	if len(models) == 0 {
		models = e.opts.Models
	}

	var lastErr error
	total := 0
	for _, model := range models {
		text, attempts, err := e.tryModel(ctx, model, prompt)
		total += attempts
		if err == nil {
			logger.Info("Generation succeeded", "model", model, "attempts", attempts)
			return ParseResult(text)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		logger.Warn("Model exhausted, trying next", "model", model, "attempts", attempts, "error", err.Error())
	}

	return nil, &core.GenerationError{Models: models, Attempts: total, Err: lastErr}
}

// tryModel runs up to MaxAttempts calls against one model. Client errors stop it early.
func (e *Engine) tryModel(ctx context.Context, model, prompt string) (string, int, error) {
	attempt := 0
	var wait time.Duration

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= e.opts.MaxAttempts {
			return 0, true
		}
		if e.onWait != nil {
			e.onWait(model, attempt, wait)
		}
		return wait, false
	})

	opts := llm.GenerateOptions{JSONMode: true, Temperature: e.opts.Temperature}
	text, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (string, error) {
		attempt++
		text, err := e.provider.Generate(ctx, model, prompt, opts)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		kind := llm.Classify(err)
		switch {
		case kind.Transient():
			wait = time.Duration(attempt) * e.opts.RateLimitStep
		case kind == llm.KindClient:
			logger.Warn("Model rejected request, skipping", "model", model, "error", err.Error())
			return "", err
		default:
			wait = e.opts.RetryDelay
		}
		logger.Debug("Generation attempt failed", "model", model, "attempt", attempt, "kind", string(kind), "wait", wait.String())
		return "", retry.RetryableError(err)
	})
	if err != nil {
		return "", attempt, fmt.Errorf("model %s: %w", model, err)
	}
	return text, attempt, nil
}

// ListModels proxies the provider's model listing.
func (e *Engine) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return e.provider.ListModels(ctx)
}
