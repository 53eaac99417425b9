package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/golang/mock/gomock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-yield-ledger/internal/mocks"
	"github.com/feral-file/ff-yield-ledger/internal/ratelimit"
)

// testLimiter contains all the mocks needed for testing the limiter
type testLimiter struct {
	redisClient      *mocks.MockRedisClient
	redisRateLimiter *mocks.MockRedisRateLimiter
	clock            *mocks.MockClock
	now              time.Time
}

func setupTestLimiter(t *testing.T) *testLimiter {
	ctrl := gomock.NewController(t)
	tm := &testLimiter{
		redisClient:      mocks.NewMockRedisClient(ctrl),
		redisRateLimiter: mocks.NewMockRedisRateLimiter(ctrl),
		clock:            mocks.NewMockClock(ctrl),
		now:              time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	tm.clock.EXPECT().Now().DoAndReturn(func() time.Time { return tm.now }).AnyTimes()
	// health checks never fire during a test
	tm.clock.EXPECT().After(gomock.Any()).Return(make(chan time.Time)).AnyTimes()
	return tm
}

// expectRedis makes the Redis client reachable at construction
func (tm *testLimiter) expectRedis() {
	tm.redisClient.EXPECT().Ping(gomock.Any()).Return(redis.NewStatusResult("PONG", nil))
	tm.redisClient.EXPECT().NewRateLimiter().Return(tm.redisRateLimiter)
	tm.redisClient.EXPECT().Close().Return(nil)
}

func TestNewLimiter_InvalidConfig(t *testing.T) {
	tm := setupTestLimiter(t)
	_, err := ratelimit.NewLimiter(ratelimit.Config{}, nil, tm.clock)
	assert.Error(t, err)
}

func TestLimiter_Local(t *testing.T) {
	tm := setupTestLimiter(t)
	l, err := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60, Burst: 2}, nil, tm.clock)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	wallet := "0x00000000000000000000000000000000000000b1"

	d, err := l.Allow(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, ratelimit.Decision{Allowed: true, Remaining: 1}, d)

	d, err = l.Allow(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, ratelimit.Decision{Allowed: true, Remaining: 0}, d)

	d, err = l.Allow(ctx, wallet)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	// budgets are per key
	d, err = l.Allow(ctx, "0x00000000000000000000000000000000000000b2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// a denied request does not consume the refill
	tm.now = tm.now.Add(time.Second)
	d, err = l.Allow(ctx, wallet)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiter_Redis(t *testing.T) {
	tm := setupTestLimiter(t)
	tm.expectRedis()

	l, err := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60}, tm.redisClient, tm.clock)
	require.NoError(t, err)

	limit := redis_rate.Limit{Rate: 60, Burst: 60, Period: time.Minute}
	gomock.InOrder(
		tm.redisRateLimiter.EXPECT().
			Allow(gomock.Any(), "ff:ledger:limiter:0xb1", limit).
			Return(&redis_rate.Result{Limit: limit, Allowed: 1, Remaining: 59, RetryAfter: -1}, nil),
		tm.redisRateLimiter.EXPECT().
			Allow(gomock.Any(), "ff:ledger:limiter:0xb1", limit).
			Return(&redis_rate.Result{Limit: limit, Allowed: 0, Remaining: 0, RetryAfter: 2 * time.Second}, nil),
	)

	d, err := l.Allow(context.Background(), "0xb1")
	require.NoError(t, err)
	assert.Equal(t, ratelimit.Decision{Allowed: true, Remaining: 59}, d)

	d, err = l.Allow(context.Background(), "0xb1")
	require.NoError(t, err)
	assert.Equal(t, ratelimit.Decision{Allowed: false, RetryAfter: 2 * time.Second}, d)

	require.NoError(t, l.Close())
	// closing twice closes Redis once
	require.NoError(t, l.Close())
}

func TestLimiter_RedisErrorFallsBackToLocal(t *testing.T) {
	tm := setupTestLimiter(t)
	tm.expectRedis()

	l, err := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute:   60,
		Burst:               1,
		EnableLocalFallback: true,
	}, tm.redisClient, tm.clock)
	require.NoError(t, err)
	defer l.Close()

	tm.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset")).
		Times(1)

	d, err := l.Allow(context.Background(), "0xb1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Redis stays out of the path until the health check restores it
	d, err = l.Allow(context.Background(), "0xb1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestLimiter_RedisErrorWithoutFallback(t *testing.T) {
	tm := setupTestLimiter(t)
	tm.expectRedis()

	l, err := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60}, tm.redisClient, tm.clock)
	require.NoError(t, err)
	defer l.Close()

	tm.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset"))

	_, err = l.Allow(context.Background(), "0xb1")
	assert.Error(t, err)

	_, err = l.Allow(context.Background(), "0xb1")
	assert.Error(t, err)
}

func TestNewLimiter_RedisDown(t *testing.T) {
	tm := setupTestLimiter(t)
	tm.redisClient.EXPECT().Ping(gomock.Any()).Return(redis.NewStatusResult("", errors.New("connection refused")))

	_, err := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60}, tm.redisClient, tm.clock)
	assert.Error(t, err)
}

func TestNewLimiter_RedisDownWithFallback(t *testing.T) {
	tm := setupTestLimiter(t)
	tm.redisClient.EXPECT().Ping(gomock.Any()).Return(redis.NewStatusResult("", errors.New("connection refused")))
	tm.redisClient.EXPECT().NewRateLimiter().Return(tm.redisRateLimiter)
	tm.redisClient.EXPECT().Close().Return(nil)

	l, err := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute:   60,
		EnableLocalFallback: true,
	}, tm.redisClient, tm.clock)
	require.NoError(t, err)
	defer l.Close()

	// counted locally, the Redis limiter is never called
	d, err := l.Allow(context.Background(), "0xb1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 59, d.Remaining)
}
