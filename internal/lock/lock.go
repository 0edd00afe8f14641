// Package lock prevents two overlapping runs of the same batch job.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var ErrLocked = errors.New("run already in progress")

type Locker interface {
	// Acquire takes key for at most ttl. It returns ErrLocked when another
	// holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrapf(err, "redis.ParseURL(%q)", redisURL)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping failed")
	}
	return client, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to acquire lock %s", k)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// the caller context may already be done when the run finishes
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, l.rdb, []string{k}, token)
	}, nil
}

// LocalLocker is the single process fallback used when redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]string
	now  func() time.Time
	ttls map[string]time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: map[string]string{},
		ttls: map[string]time.Time{},
		now:  time.Now,
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok && l.now().Before(l.ttls[key]) {
		return nil, ErrLocked
	}
	token := uuid.NewString()
	l.held[key] = token
	l.ttls[key] = l.now().Add(ttl)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key] == token {
			delete(l.held, key)
			delete(l.ttls, key)
		}
	}, nil
}
