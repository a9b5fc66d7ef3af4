package locker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mindarch-ai/mindarch/pkg/utils"
)

// acquirePollInterval 抢锁轮询间隔
const acquirePollInterval = 100 * time.Millisecond

// RedisLocker serializes work across processes with SET NX + TTL. The
// release token guards against releasing a lock that expired and was
// re-acquired by someone else.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Acquire blocks until the lock is held or ctx is done. The returned
// release func is safe to call once.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := utils.RandomStr(16)

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return func() {
				rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				releaseScript.Run(rctx, l.client, []string{key}, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-time.After(acquirePollInterval):
		}
	}
}

// LocalLocker is the selfhost fallback: same contract, one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]time.Time)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	for {
		if l.tryLock(key, ttl) {
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					defer l.mu.Unlock()
					delete(l.locks, key)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-time.After(acquirePollInterval):
		}
	}
}

func (l *LocalLocker) tryLock(key string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if expiry, ok := l.locks[key]; ok && time.Now().Before(expiry) {
		return false
	}
	l.locks[key] = time.Now().Add(ttl)
	return true
}
