package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
	"spendwise/internal/uuid"
)

const (
	defaultLockPrefix = "spendwise:wallet-lock:"
	defaultRetryEvery = 25 * time.Millisecond
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lock that was re-acquired by another process is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every replica pointing at the same Redis.
// Each key is a SET NX PX entry carrying a random token; the TTL bounds how
// long a crashed holder can block others.
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryEvery time.Duration
	prefix     string
}

// RedisOption configures a RedisLocker.
type RedisOption func(*RedisLocker)

// WithRetryInterval sets how often a blocked Acquire polls Redis.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		l.retryEvery = d
	}
}

// WithKeyPrefix sets the Redis key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLocker) {
		l.prefix = prefix
	}
}

// NewRedisLocker creates a RedisLocker whose locks expire after ttl.
func NewRedisLocker(client *redis.Client, ttl time.Duration, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryEvery: defaultRetryEvery,
		prefix:     defaultLockPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

type heldKey struct {
	key   string
	token string
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	held := make([]heldKey, 0, len(keys))

	for _, key := range keys {
		hk := heldKey{key: l.prefix + key, token: uuid.New()}
		if err := l.acquireOne(ctx, hk); err != nil {
			l.release(held)
			return nil, err
		}
		held = append(held, hk)
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *RedisLocker) acquireOne(ctx context.Context, hk heldKey) error {
	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, hk.key, hk.token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return apperrors.Wrap(apperrors.ErrLockTimeout, ctx.Err())
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("acquire %s: %w", hk.key, err))
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(held []heldKey) {
	// Release must run even when the request context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := len(held) - 1; i >= 0; i-- {
		if err := unlockScript.Run(ctx, l.client, []string{held[i].key}, held[i].token).Err(); err != nil {
			logger.Get().Warnw("failed to release wallet lock",
				"key", held[i].key,
				"error", err,
			)
		}
	}
}
