package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
)

// Config contains action rate limiting configuration.
type Config struct {
	// Limit is the number of allowed invocations per actor+action per window.
	Limit int

	// Window is the fixed counting window.
	Window time.Duration
}

// DefaultConfig returns the default actor/action limit.
func DefaultConfig() Config {
	return Config{
		Limit:  30,
		Window: 1 * time.Minute,
	}
}

// New builds the appropriate limiter for the deployment: redis-backed when an
// address is configured (counts shared across instances), in-process token
// buckets otherwise.
func New(redisCfg config.RedisConfig, cfg Config) (core.ActionLimiter, error) {
	if redisCfg.Addr == "" {
		return NewLocalLimiter(cfg), nil
	}
	return NewRedisLimiter(redisCfg, cfg)
}

// RedisLimiter is a fixed-window counter keyed by actor and action. INCR and
// EXPIRE are single-key operations, so concurrent instances share one window
// without coordination.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
}

func NewRedisLimiter(redisCfg config.RedisConfig, cfg Config) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		MaxRetries:   redisCfg.MaxRetries,
		DialTimeout:  redisCfg.DialTimeout,
		ReadTimeout:  redisCfg.ReadTimeout,
		WriteTimeout: redisCfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLimiter{client: client, cfg: cfg}, nil
}

func (l *RedisLimiter) key(actorID, action string) string {
	return fmt.Sprintf("sentinel:rl:%s:%s", actorID, action)
}

// Allow increments the window counter and reports whether the caller is
// within the limit. Backend errors are returned so the caller can fail
// closed.
func (l *RedisLimiter) Allow(ctx context.Context, actorID, action string) (bool, error) {
	key := l.key(actorID, action)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	if count == 1 {
		// First hit in this window owns the expiry.
		if err := l.client.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expiry failed: %w", err)
		}
	}

	return count <= int64(l.cfg.Limit), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// LocalLimiter keeps one token bucket per actor+action key. Suitable for
// single-instance deployments and tests; counts are not shared across
// processes.
type LocalLimiter struct {
	cfg      Config
	mu       sync.Mutex
	buckets  map[string]*localBucket
	stopOnce sync.Once
	stop     chan struct{}
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(cfg Config) *LocalLimiter {
	l := &LocalLimiter{
		cfg:     cfg,
		buckets: make(map[string]*localBucket),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *LocalLimiter) Allow(ctx context.Context, actorID, action string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := actorID + ":" + action

	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		perSecond := rate.Limit(float64(l.cfg.Limit) / l.cfg.Window.Seconds())
		bucket = &localBucket{
			limiter: rate.NewLimiter(perSecond, l.cfg.Limit),
		}
		l.buckets[key] = bucket
	}
	bucket.lastSeen = time.Now()
	l.mu.Unlock()

	return bucket.limiter.Allow(), nil
}

// cleanup drops buckets idle for longer than two windows so the map does not
// grow with every actor the process ever saw.
func (l *LocalLimiter) cleanup() {
	interval := l.cfg.Window
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * l.cfg.Window)
			l.mu.Lock()
			for key, bucket := range l.buckets {
				if bucket.lastSeen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

func (l *LocalLimiter) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	return nil
}
