package quota

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/common/validation"
)

// Limiter tracks a shared vendor API unit budget across application
// instances using Redis fixed windows. It answers "may I spend N units of
// quota right now" rather than pacing individual requests; pair it with an
// adaptive limiter for request pacing.
type Limiter interface {
	// Allow reports whether cost units may be spent in the current window
	// across all instances, and spends them if so.
	Allow(ctx context.Context, cost int) bool

	// Remaining returns the units left in the current window.
	Remaining(ctx context.Context) (int64, error)

	// Stats returns current quota statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Reset clears the quota state (useful for testing).
	Reset(ctx context.Context) error

	// Close deregisters this instance and releases resources.
	Close() error
}

// Stats holds quota accounting for the current window.
type Stats struct {
	Limit           int64
	Spent           int64
	Remaining       int64
	WindowStart     time.Time
	WindowEnd       time.Time
	TotalRequests   int64
	AllowedRequests int64
	DeniedRequests  int64
	ActiveInstances []string
}

// Clock provides the current time. It can be mocked for testing window math.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds configuration for a quota limiter.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Key is the Redis key prefix for this quota
	Key string

	// Limit is the number of units that may be spent per window
	Limit int64

	// Window is the accounting window length, UTC-aligned.
	// Defaults to 24 hours (the YouTube Data API quota model).
	Window time.Duration

	// InstanceID uniquely identifies this application instance
	InstanceID string

	// FailOpen allows spending when Redis is unavailable. When false
	// (the default), Allow denies on Redis errors.
	FailOpen bool

	// RedisTimeout is the timeout for Redis operations
	RedisTimeout time.Duration

	// Clock provides the current time. If nil, system time is used.
	Clock Clock
}

// quotaLimiter implements Limiter on Redis fixed windows, one key per
// window, with an atomic Lua check-and-spend.
type quotaLimiter struct {
	config Config
	clock  Clock

	statsKey     string
	instancesKey string

	checkAndSpendScript *redis.Script
}

// New creates a quota limiter and registers this instance in Redis.
func New(config Config) (Limiter, error) {
	if err := validation.ValidateNotNil("quota", "redis", config.Redis); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty("quota", "key", config.Key); err != nil {
		return nil, err
	}
	if config.Limit <= 0 {
		return nil, bferrors.NewValidationError("quota", "limit", config.Limit, "must be positive").
			WithHint("set the vendor's per-window unit budget")
	}
	if config.Window <= 0 {
		config.Window = 24 * time.Hour
	}
	if config.InstanceID == "" {
		config.InstanceID = generateInstanceID()
	}
	if config.RedisTimeout == 0 {
		config.RedisTimeout = 500 * time.Millisecond
	}
	clock := config.Clock
	if clock == nil {
		clock = systemClock{}
	}

	ql := &quotaLimiter{
		config:              config,
		clock:               clock,
		statsKey:            config.Key + ":stats",
		instancesKey:        config.Key + ":instances",
		checkAndSpendScript: redis.NewScript(luaCheckAndSpend),
	}

	if err := ql.register(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize quota limiter: %w", err)
	}

	return ql, nil
}

// register records this instance in Redis.
func (ql *quotaLimiter) register(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ql.config.RedisTimeout)
	defer cancel()

	pipe := ql.config.Redis.Pipeline()
	pipe.SAdd(ctx, ql.instancesKey, ql.config.InstanceID)
	pipe.Expire(ctx, ql.instancesKey, ql.keyTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		return bferrors.NewOperationError("quota", "register", err)
	}
	return nil
}

// windowStart returns the UTC-aligned start of the window containing t.
func (ql *quotaLimiter) windowStart(t time.Time) time.Time {
	return t.UTC().Truncate(ql.config.Window)
}

// windowKey returns the Redis key for the window containing t.
func (ql *quotaLimiter) windowKey(t time.Time) string {
	return fmt.Sprintf("%s:window:%d", ql.config.Key, ql.windowStart(t).Unix())
}

// keyTTL keeps window keys around one extra window for post-hoc inspection.
func (ql *quotaLimiter) keyTTL() time.Duration {
	return 2 * ql.config.Window
}

// Allow implements Limiter.
func (ql *quotaLimiter) Allow(ctx context.Context, cost int) bool {
	if cost <= 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, ql.config.RedisTimeout)
	defer cancel()

	now := ql.clock.Now()
	result, err := ql.checkAndSpendScript.Run(ctx, ql.config.Redis,
		[]string{ql.windowKey(now), ql.statsKey},
		cost,
		ql.config.Limit,
		int64(ql.keyTTL().Seconds()),
	).Result()
	if err != nil {
		return ql.config.FailOpen
	}

	allowed, ok := result.(int64)
	return ok && allowed == 1
}

// Remaining implements Limiter.
func (ql *quotaLimiter) Remaining(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, ql.config.RedisTimeout)
	defer cancel()

	now := ql.clock.Now()
	spent, err := ql.config.Redis.Get(ctx, ql.windowKey(now)).Int64()
	if err != nil && err != redis.Nil {
		return 0, bferrors.NewOperationError("quota", "Remaining", err)
	}

	remaining := ql.config.Limit - spent
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Stats implements Limiter.
func (ql *quotaLimiter) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, ql.config.RedisTimeout)
	defer cancel()

	now := ql.clock.Now()
	pipe := ql.config.Redis.Pipeline()
	spentCmd := pipe.Get(ctx, ql.windowKey(now))
	statsCmd := pipe.HGetAll(ctx, ql.statsKey)
	instancesCmd := pipe.SMembers(ctx, ql.instancesKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, bferrors.NewOperationError("quota", "Stats", err)
	}

	spent, _ := strconv.ParseInt(spentCmd.Val(), 10, 64)
	statsMap := statsCmd.Val()
	total, _ := strconv.ParseInt(statsMap["total_requests"], 10, 64)
	allowed, _ := strconv.ParseInt(statsMap["allowed_requests"], 10, 64)
	denied, _ := strconv.ParseInt(statsMap["denied_requests"], 10, 64)

	remaining := ql.config.Limit - spent
	if remaining < 0 {
		remaining = 0
	}

	start := ql.windowStart(now)
	return &Stats{
		Limit:           ql.config.Limit,
		Spent:           spent,
		Remaining:       remaining,
		WindowStart:     start,
		WindowEnd:       start.Add(ql.config.Window),
		TotalRequests:   total,
		AllowedRequests: allowed,
		DeniedRequests:  denied,
		ActiveInstances: instancesCmd.Val(),
	}, nil
}

// Reset implements Limiter.
func (ql *quotaLimiter) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ql.config.RedisTimeout)
	defer cancel()

	now := ql.clock.Now()
	keys := []string{ql.windowKey(now), ql.statsKey, ql.instancesKey}
	if err := ql.config.Redis.Del(ctx, keys...).Err(); err != nil {
		return bferrors.NewOperationError("quota", "Reset", err)
	}
	return ql.register(ctx)
}

// Close implements Limiter.
func (ql *quotaLimiter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ql.config.RedisTimeout)
	defer cancel()

	return ql.config.Redis.SRem(ctx, ql.instancesKey, ql.config.InstanceID).Err()
}

// generateInstanceID creates a unique identifier for this application instance.
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	pid := os.Getpid()

	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)

	return fmt.Sprintf("%s-%d-%x-%d",
		hostname, pid, randomBytes, time.Now().Unix())
}

// Lua script for atomic quota spend
const luaCheckAndSpend = `
-- KEYS[1]: current window key
-- KEYS[2]: stats key
-- ARGV[1]: cost in units
-- ARGV[2]: unit limit per window
-- ARGV[3]: window key TTL (seconds)

local window_key = KEYS[1]
local stats_key = KEYS[2]

local cost = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local spent = tonumber(redis.call('GET', window_key) or "0")

if spent + cost <= limit then
    local new_spent = redis.call('INCRBY', window_key, cost)

    -- Set TTL if this is a new window
    if new_spent == cost then
        redis.call('EXPIRE', window_key, ttl)
    end

    redis.call('HINCRBY', stats_key, 'total_requests', 1)
    redis.call('HINCRBY', stats_key, 'allowed_requests', 1)

    return 1 -- allowed
else
    redis.call('HINCRBY', stats_key, 'total_requests', 1)
    redis.call('HINCRBY', stats_key, 'denied_requests', 1)

    return 0 -- denied
end
`
