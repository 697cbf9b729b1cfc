package ratelimit

import "context"

// RateLimiter bounds outbound channel throughput per channel name. The
// voice channel is the cost-sensitive one; escalation calls wait here
// before reaching the gateway.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
