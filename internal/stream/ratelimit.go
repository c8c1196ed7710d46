package stream

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimiter paces outbound Data messages to a client's configured
// blocks_per_second AND bytes_per_second budgets (spec §4.4 step 6). It
// wraps two independent x/time/rate token buckets — a message is only let
// through once both have capacity, so a stream of many small blocks is
// paced by blocks_per_second while a few oversized blocks are paced by
// bytes_per_second.
type rateLimiter struct {
	blocks *rate.Limiter
	bytes  *rate.Limiter
}

func newRateLimiter(blocksPerSecond float64, blocksBurst int, bytesPerSecond float64, bytesBurst int) *rateLimiter {
	r := &rateLimiter{}
	if blocksPerSecond <= 0 {
		r.blocks = rate.NewLimiter(rate.Inf, 0)
	} else {
		r.blocks = rate.NewLimiter(rate.Limit(blocksPerSecond), blocksBurst)
	}
	if bytesPerSecond <= 0 {
		r.bytes = rate.NewLimiter(rate.Inf, 0)
	} else {
		r.bytes = rate.NewLimiter(rate.Limit(bytesPerSecond), bytesBurst)
	}
	return r
}

// Wait blocks until n message tokens and weightBytes byte tokens are both
// available, or ctx is cancelled.
func (r *rateLimiter) Wait(ctx context.Context, n int, weightBytes int) error {
	if n > 0 {
		if err := r.blocks.WaitN(ctx, n); err != nil {
			return err
		}
	}
	if weightBytes > 0 {
		if err := r.bytes.WaitN(ctx, weightBytes); err != nil {
			return err
		}
	}
	return nil
}
