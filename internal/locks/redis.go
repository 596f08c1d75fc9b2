package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it still carries our token,
// so an expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisKeyed implements Keyed over SET NX PX, for deployments where
// several server processes may receive completion calls for the same
// session. TTL bounds how long a crashed holder can block a key.
type RedisKeyed struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisKeyed(client *redis.Client, ttl time.Duration) *RedisKeyed {
	return &RedisKeyed{client: client, ttl: ttl, poll: 50 * time.Millisecond}
}

func (r *RedisKeyed) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-time.After(r.poll):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
