package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Generations hands out per-scope version numbers for cache keys. Readers
// fetch the current generation before loading from the source of truth and
// write under it; bumping the generation orphans every entry written before.
type Generations struct {
	client *goredis.Client
	prefix string
}

func NewGenerations(client *goredis.Client, prefix string) *Generations {
	return &Generations{client: client, prefix: prefix}
}

// Current returns the scope's generation, 0 if it was never bumped.
func (g *Generations) Current(ctx context.Context, scope string) (int64, error) {
	n, err := g.client.Get(ctx, g.prefix+scope).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return n, nil
}

// Bump advances the scope's generation and returns the new value.
func (g *Generations) Bump(ctx context.Context, scope string) (int64, error) {
	n, err := g.client.Incr(ctx, g.prefix+scope).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return n, nil
}
