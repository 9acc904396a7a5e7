package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"stayhub/internal/app/policies"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker takes listing locks shared by every API instance. Leases expire after ttl, so a
// crashed holder blocks others for at most that long.
type Locker struct {
	client   goredis.Cmdable
	prefix   string
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

func NewLocker(client goredis.Cmdable, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{client: client, prefix: "stayhub:lock:", ttl: ttl, wait: wait, interval: 25 * time.Millisecond}
}

func (l *Locker) Acquire(ctx context.Context, key string) (policies.Release, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	err := policies.Poll(ctx, l.wait, l.interval, func(ctx context.Context) (bool, error) {
		return l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
	}, nil
}

var _ policies.Locker = (*Locker)(nil)
