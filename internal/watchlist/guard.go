package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrActionInFlight is returned when another mutating outreach call holds the slot.
var ErrActionInFlight = errors.New("watchlist: an outreach action is already in progress")

// Guard extends the per-view in-flight slot across dashboard replicas.
// Acquire returns ErrActionInFlight when the key is already held.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const guardKeyPrefix = "gymguard:inflight:"

// Only the holder's token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard holds the slot as a Redis key with a TTL so a crashed
// replica cannot wedge a user forever.
type RedisGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if client == nil {
		panic("watchlist: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{redis: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.redis.SetNX(ctx, guardKey(key), token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("watchlist: acquire guard: %w", err)
	}
	if !ok {
		return nil, ErrActionInFlight
	}
	return func() {
		// The request context may already be done by the time we release.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, g.redis, []string{guardKey(key)}, token).Err()
	}, nil
}

func guardKey(key string) string {
	return guardKeyPrefix + key
}
