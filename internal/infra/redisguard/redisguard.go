// Package redisguard holds a short-lived per-user slot in Redis so a second
// checkout for the same user can be turned away before it touches Postgres.
package redisguard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fastprodman/gamemarket/internal/config"
)

// Deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type Guard struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	prefix  string
	release *redis.Script
	timeout time.Duration
}

func New(rdb redis.UniversalClient, ttl time.Duration) *Guard {
	return &Guard{
		rdb:     rdb,
		ttl:     ttl,
		prefix:  "checkout:inflight",
		release: redis.NewScript(releaseScript),
		timeout: 2 * time.Second,
	}
}

func (g *Guard) key(userID int64) string {
	return fmt.Sprintf("%s:{%d}", g.prefix, userID)
}

// Acquire takes the user's slot for at most the configured TTL. ok is false
// when the slot is taken. The returned release is safe to call once.
func (g *Guard) Acquire(ctx context.Context, userID int64) (func(), bool, error) {
	token := uuid.NewString()
	key := g.key(userID)

	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire checkout guard: %w", err)
	}

	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the request context may already be done
		rctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		_ = g.release.Run(rctx, g.rdb, []string{key}, token).Err()
	}

	return release, true, nil
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Second,
		ReadTimeout:  400 * time.Millisecond,
		WriteTimeout: 400 * time.Millisecond,
		PoolTimeout:  750 * time.Millisecond,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			_ = cn.ClientSetName(ctx, "gamemarket").Err()
			return nil
		},
	})

	err := rdb.Ping(ctx).Err()
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
