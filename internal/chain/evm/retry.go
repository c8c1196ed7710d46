package evm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"

	backoffv4 "github.com/cenkalti/backoff/v4"

	"github.com/dna-engine/dna/pkg/config"
)

// retryableError reports whether err looks like a transient failure worth
// retrying (network blip, timeout, rate limit, or a 5xx-class response).
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context deadline exceeded") {
		return true
	}

	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "rate limit") {
		return true
	}

	if strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return true
	}

	if strings.Contains(errStr, "connection pool") ||
		strings.Contains(errStr, "no available connection") {
		return true
	}

	return false
}

// calculateBackoff computes the exponential backoff duration for a given
// attempt, with +/-25% jitter, capped at cfg.MaxBackoff.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	backoff := float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-2))

	if backoff > float64(cfg.MaxBackoff.Duration) {
		backoff = float64(cfg.MaxBackoff.Duration)
	}

	jitterRange := backoff * 0.25
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
	backoff += jitter

	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}

// retryWithBackoff executes fn with exponential backoff retry logic,
// respecting context cancellation and deadlines. This is the default retry
// path used for single RPC calls (GetBlockByNumber, GetBlockByHash, GetHead,
// GetFinalized).
func retryWithBackoff(ctx context.Context, cfg *config.RetryConfig, operation string, fn func() error) error {
	if cfg == nil {
		return fn()
	}

	var lastErr error
	startTime := time.Now()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				RPCRetryInc(operation)
			}
			return nil
		}

		lastErr = err

		if !retryableError(err) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, cfg.MaxAttempts, err)
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		backoffDuration := calculateBackoff(attempt, cfg)
		if backoffDuration > 0 {
			select {
			case <-time.After(backoffDuration):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff (attempt %d/%d): %w",
					attempt, cfg.MaxAttempts, ctx.Err())
			}
		}

		RPCRetryInc(operation)
	}

	return fmt.Errorf("all %d attempts failed after %v (last error: %w)",
		cfg.MaxAttempts, time.Since(startTime), lastErr)
}

// retryWalkbackWithBackoff executes fn under a cenkalti/backoff/v4 policy
// built from cfg. The ancestor walk-back performed while recovering from a
// reorg (the ingestor's Recover state) issues many sequential
// get-parent-by-hash calls against a chain tip that may still be settling;
// backoff/v4's ExponentialBackOff plus WithMaxElapsedTime gives that walk an
// overall time budget independent of a fixed attempt count, which suits a
// loop whose length is not known in advance.
func retryWalkbackWithBackoff(ctx context.Context, cfg *config.RetryConfig, operation string, fn func() error) error {
	if cfg == nil {
		return fn()
	}

	policy := backoffv4.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialBackoff.Duration
	policy.MaxInterval = cfg.MaxBackoff.Duration
	policy.Multiplier = cfg.BackoffMultiplier
	policy.MaxElapsedTime = cfg.MaxBackoff.Duration * time.Duration(cfg.MaxAttempts)

	attempts := 0
	wrapped := func() error {
		attempts++
		err := fn()
		if err != nil && !retryableError(err) {
			return backoffv4.Permanent(err)
		}
		return err
	}

	err := backoffv4.Retry(wrapped, backoffv4.WithContext(policy, ctx))
	if attempts > 1 {
		RPCRetryInc(operation)
	}
	if err != nil {
		return fmt.Errorf("walkback retry exhausted for %s: %w", operation, err)
	}
	return nil
}
