package staleness

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes sweep passes across processes. Acquire reports false
// without error when another holder has the lock.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, acquired bool, err error)
}

const defaultLockKey = "leadtracker:stale-sweep"

// releaseScript deletes the key only while it still carries our token, so
// a holder whose TTL expired never frees a lock someone else took since.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis lock with a TTL.
type RedisLocker struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client redis.Cmdable, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = defaultLockKey
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}
