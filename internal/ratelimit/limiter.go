package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-yield-ledger/internal/adapter"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
)

// Config holds the per-key request budget
type Config struct {
	// RequestsPerMinute is the sustained rate each key may send
	RequestsPerMinute int
	// Burst is the number of requests a key may send at once. Defaults to RequestsPerMinute.
	Burst int
	// KeyPrefix namespaces the counters in Redis
	KeyPrefix string
	// EnableLocalFallback counts in process while Redis is unreachable
	// instead of failing every request
	EnableLocalFallback bool
	// HealthCheckInterval is how often an unreachable Redis is probed
	HealthCheckInterval time.Duration
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request from a key may proceed
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Allow consumes one request from key's budget
	Allow(ctx context.Context, key string) (Decision, error)

	// Close stops health checks and closes the Redis connection
	Close() error
}

type limiter struct {
	config         Config
	redis          adapter.RedisClient
	distributed    adapter.RedisRateLimiter
	clock          adapter.Clock
	redisAvailable atomic.Bool

	mu    sync.Mutex
	local map[string]*rate.Limiter

	done      chan struct{}
	closeOnce sync.Once
}

// NewLimiter creates a limiter counting in Redis when rc is set and in
// process otherwise
func NewLimiter(cfg Config, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l := &limiter{
		config: cfg,
		redis:  rc,
		clock:  clock,
		local:  make(map[string]*rate.Limiter),
		done:   make(chan struct{}),
	}

	if rc == nil {
		logger.Info("Rate limiter initialized without Redis, counting in process",
			zap.Int("requests_per_minute", cfg.RequestsPerMinute))
		return l, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(ctx).Err(); err != nil {
		redisAvailable = false
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, will use local fallback", zap.Error(err))
	}
	l.distributed = rc.NewRateLimiter()
	l.redisAvailable.Store(redisAvailable)

	go l.monitorRedisHealth()

	logger.Info("Rate limiter initialized",
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("burst", cfg.Burst),
		zap.Bool("redis_available", redisAvailable),
		zap.Bool("local_fallback", cfg.EnableLocalFallback),
	)

	return l, nil
}

// Allow consumes one request from key's budget. Redis is consulted first;
// a Redis failure switches the limiter to local counting until the health
// check sees Redis again.
func (l *limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.redis != nil && l.redisAvailable.Load() {
		res, err := l.distributed.Allow(ctx, l.config.KeyPrefix+key, redis_rate.Limit{
			Rate:   l.config.RequestsPerMinute,
			Burst:  l.config.Burst,
			Period: time.Minute,
		})
		if err == nil {
			return Decision{
				Allowed:    res.Allowed > 0,
				Remaining:  res.Remaining,
				RetryAfter: max(res.RetryAfter, 0),
			}, nil
		}
		if ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}

		l.redisAvailable.Store(false)
		if !l.config.EnableLocalFallback {
			return Decision{}, fmt.Errorf("redis rate limiter unavailable: %w", err)
		}
		logger.WarnCtx(ctx, "Redis rate limiter error, falling back to local", zap.Error(err))
	} else if l.redis != nil && !l.config.EnableLocalFallback {
		return Decision{}, fmt.Errorf("redis rate limiter unavailable")
	}

	return l.allowLocal(key), nil
}

// allowLocal spends a token from the in-process bucket of key
func (l *limiter) allowLocal(key string) Decision {
	l.mu.Lock()
	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.config.RequestsPerMinute)/60), l.config.Burst)
		l.local[key] = lim
	}
	l.mu.Unlock()

	now := l.clock.Now()
	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}
	}
	return Decision{Allowed: true, Remaining: int(lim.TokensAt(now))}
}

// monitorRedisHealth periodically pings Redis and updates availability
func (l *limiter) monitorRedisHealth() {
	for {
		select {
		case <-l.done:
			return
		case <-l.clock.After(l.config.HealthCheckInterval):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := l.redis.Ping(ctx).Err()
		cancel()

		available := err == nil
		if wasAvailable := l.redisAvailable.Swap(available); !wasAvailable && available {
			logger.Info("Redis connection restored")
		}
	}
}

// Close stops health checks and closes the Redis connection
func (l *limiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		if l.redis != nil {
			if closeErr := l.redis.Close(); closeErr != nil {
				logger.Warn("Error closing Redis connection", zap.Error(closeErr))
				err = closeErr
			}
		}
	})
	return err
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *Config) error {
	if cfg.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ff:ledger:limiter:"
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 10 * time.Second
	}
	return nil
}
