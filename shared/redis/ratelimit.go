package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// FixedWindowLimiter allows at most max hits per key within each window.
type FixedWindowLimiter struct {
	client *goredis.Client
	prefix string
	max    int64
	window time.Duration
}

func NewFixedWindowLimiter(client *goredis.Client, name string, max int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client: client,
		prefix: rateLimitKeyPrefix + name + ":",
		max:    int64(max),
		window: window,
	}
}

// Allow counts a hit for key and reports whether it is still within the limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	hits, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}
	return hits <= l.max, nil
}

// fixedWindowScript increments the counter and opens the window in one step.
// A counter left without a TTL gets one on its next hit.
var fixedWindowScript = goredis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 or redis.call("PTTL", KEYS[1]) == -1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`)
