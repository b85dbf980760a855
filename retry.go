package quarry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// retryConfig holds shared settings for the retry wrappers.
type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// RetryOption configures a retry wrapper.
type RetryOption func(*retryConfig)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(c *retryConfig) { c.maxAttempts = n }
}

// RetryBaseDelay sets the initial backoff delay before the second attempt
// (default: 1s). Each subsequent delay doubles.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) { c.baseDelay = d }
}

// RetryLogger sets the structured logger for retry events. Retries log at
// WARN and final failures at ERROR; without a logger nothing is emitted.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(c *retryConfig) { c.logger = l }
}

func buildRetryConfig(opts []RetryOption) retryConfig {
	cfg := retryConfig{maxAttempts: 3, baseDelay: time.Second}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = nopLogger
	}
	return cfg
}

// isTransient reports whether err is worth retrying: a 429/503 HTTP response
// or an unreachable-provider sentinel.
func isTransient(err error) bool {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.Status == 429 || e.Status == 503
	}
	return errors.Is(err, ErrEmbeddingUnavailable) || errors.Is(err, ErrGenerationUnavailable)
}

// retryAfterOf extracts the Retry-After duration from an ErrHTTP, or 0.
func retryAfterOf(err error) time.Duration {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// retryBackoff returns the delay for retry i (0-indexed).
// Exponential: base * 2^i, plus up to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}

// retryDelay computes the delay before retry attempt i, using exponential
// backoff as a floor and the server's Retry-After value as a minimum.
func retryDelay(base time.Duration, i int, err error) time.Duration {
	backoff := retryBackoff(base, i)
	if ra := retryAfterOf(err); ra > backoff {
		return ra
	}
	return backoff
}

// retryCall calls fn up to maxAttempts times, sleeping between transient failures.
func retryCall[T any](ctx context.Context, cfg retryConfig, name string, fn func() (T, error)) (T, error) {
	var zero T
	var last error
	for i := 0; i < cfg.maxAttempts; i++ {
		result, err := fn()
		if err == nil || !isTransient(err) {
			return result, err
		}
		last = err
		cfg.logger.Warn("retrying transient error",
			"provider", name,
			"attempt", i+1,
			"max_attempts", cfg.maxAttempts,
			"error", err)
		if i < cfg.maxAttempts-1 {
			timer := time.NewTimer(retryDelay(cfg.baseDelay, i, err))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
	cfg.logger.Error("all retry attempts exhausted",
		"provider", name,
		"attempts", cfg.maxAttempts,
		"error", last)
	return zero, last
}

// retryEmbedding wraps an EmbeddingProvider with bounded retry on transient
// failures (429, 503, unreachable backend).
type retryEmbedding struct {
	inner EmbeddingProvider
	cfg   retryConfig
}

// WithEmbeddingRetry wraps p with bounded retry and exponential backoff.
//
//	emb = quarry.WithEmbeddingRetry(openaicompat.NewEmbedding(key, model, url))
func WithEmbeddingRetry(p EmbeddingProvider, opts ...RetryOption) EmbeddingProvider {
	return &retryEmbedding{inner: p, cfg: buildRetryConfig(opts)}
}

func (r *retryEmbedding) Name() string    { return r.inner.Name() }
func (r *retryEmbedding) Dimensions() int { return r.inner.Dimensions() }

func (r *retryEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return retryCall(ctx, r.cfg, r.inner.Name(), func() ([][]float32, error) {
		return r.inner.Embed(ctx, texts)
	})
}

// retryCompletion wraps a CompletionProvider with bounded retry on transient
// failures.
type retryCompletion struct {
	inner CompletionProvider
	cfg   retryConfig
}

// WithCompletionRetry wraps p with bounded retry and exponential backoff.
func WithCompletionRetry(p CompletionProvider, opts ...RetryOption) CompletionProvider {
	return &retryCompletion{inner: p, cfg: buildRetryConfig(opts)}
}

func (r *retryCompletion) Name() string { return r.inner.Name() }

func (r *retryCompletion) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return retryCall(ctx, r.cfg, r.inner.Name(), func() (string, error) {
		return r.inner.Complete(ctx, messages)
	})
}

// Compile-time checks.
var (
	_ EmbeddingProvider  = (*retryEmbedding)(nil)
	_ CompletionProvider = (*retryCompletion)(nil)
)
