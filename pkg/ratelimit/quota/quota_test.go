package quota

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/internal/testutil"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func TestNewValidation(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	tests := []struct {
		name   string
		config Config
	}{
		{"nil redis", Config{Key: "test", Limit: 100}},
		{"empty key", Config{Redis: rdb, Limit: 100}},
		{"zero limit", Config{Redis: rdb, Key: "test", Limit: 0}},
		{"negative limit", Config{Redis: rdb, Key: "test", Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			testutil.AssertError(t, err)
			if !errors.Is(err, bferrors.ErrInvalidConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestWindowAlignment(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)}
	ql := &quotaLimiter{
		config: Config{Key: "test:quota", Window: 24 * time.Hour},
		clock:  clock,
	}

	start := ql.windowStart(clock.now)
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	testutil.AssertEqual(t, start, want)

	// Same key anywhere inside the window
	key1 := ql.windowKey(clock.now)
	key2 := ql.windowKey(time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC))
	testutil.AssertEqual(t, key2, key1)

	// Different key in the next window
	key3 := ql.windowKey(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	if key1 == key3 {
		t.Errorf("expected a new key for the next window, both were %s", key1)
	}

	wantKey := fmt.Sprintf("test:quota:window:%d", want.Unix())
	testutil.AssertEqual(t, key1, wantKey)
}

func TestWindowAlignmentNonUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	local := time.Date(2025, 3, 15, 2, 0, 0, 0, loc) // 21:00 UTC on the 14th

	ql := &quotaLimiter{
		config: Config{Key: "test:quota", Window: 24 * time.Hour},
	}

	start := ql.windowStart(local)
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	testutil.AssertEqual(t, start, want)
}

func TestHourlyWindow(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)}
	ql := &quotaLimiter{
		config: Config{Key: "test:quota", Window: time.Hour},
		clock:  clock,
	}

	start := ql.windowStart(clock.now)
	want := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	testutil.AssertEqual(t, start, want)
}

func setupRedisQuota(t *testing.T, config Config) (Limiter, *redis.Client) {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if rdb.Ping(context.Background()).Err() != nil {
		rdb.Close()
		t.Skip("Redis not available")
	}

	config.Redis = rdb
	if config.Key == "" {
		config.Key = fmt.Sprintf("test:quota:%s:%d", t.Name(), time.Now().UnixNano())
	}

	q, err := New(config)
	testutil.AssertNoError(t, err)

	t.Cleanup(func() {
		q.Reset(context.Background())
		q.Close()
		rdb.Close()
	})

	return q, rdb
}

func TestAllowSpendsUnits(t *testing.T) {
	q, _ := setupRedisQuota(t, Config{Limit: 100})
	ctx := context.Background()

	if !q.Allow(ctx, 60) {
		t.Fatal("expected first spend to be allowed")
	}

	remaining, err := q.Remaining(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, remaining, int64(40))

	// 60 more would overspend
	if q.Allow(ctx, 60) {
		t.Error("expected overspend to be denied")
	}

	// Denied spends leave the budget untouched
	remaining, err = q.Remaining(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, remaining, int64(40))

	if !q.Allow(ctx, 40) {
		t.Error("expected exact remaining spend to be allowed")
	}
	if q.Allow(ctx, 1) {
		t.Error("expected spend from an exhausted budget to be denied")
	}
}

func TestAllowZeroCost(t *testing.T) {
	q, _ := setupRedisQuota(t, Config{Limit: 10})
	ctx := context.Background()

	if !q.Allow(ctx, 0) {
		t.Error("expected zero-cost spend to be allowed")
	}

	remaining, err := q.Remaining(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, remaining, int64(10))
}

func TestStats(t *testing.T) {
	q, _ := setupRedisQuota(t, Config{Limit: 100, InstanceID: "stats-test-1"})
	ctx := context.Background()

	q.Allow(ctx, 70)
	q.Allow(ctx, 50) // denied
	q.Allow(ctx, 20)

	stats, err := q.Stats(ctx)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, stats.Limit, int64(100))
	testutil.AssertEqual(t, stats.Spent, int64(90))
	testutil.AssertEqual(t, stats.Remaining, int64(10))
	testutil.AssertEqual(t, stats.TotalRequests, int64(3))
	testutil.AssertEqual(t, stats.AllowedRequests, int64(2))
	testutil.AssertEqual(t, stats.DeniedRequests, int64(1))

	if stats.WindowEnd.Sub(stats.WindowStart) != 24*time.Hour {
		t.Errorf("expected a 24h window, got %v", stats.WindowEnd.Sub(stats.WindowStart))
	}

	found := false
	for _, id := range stats.ActiveInstances {
		if id == "stats-test-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected instance in active set, got %v", stats.ActiveInstances)
	}
}

func TestReset(t *testing.T) {
	q, _ := setupRedisQuota(t, Config{Limit: 100})
	ctx := context.Background()

	q.Allow(ctx, 100)
	if q.Allow(ctx, 1) {
		t.Fatal("expected exhausted budget before reset")
	}

	testutil.AssertNoError(t, q.Reset(ctx))

	remaining, err := q.Remaining(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, remaining, int64(100))

	if !q.Allow(ctx, 1) {
		t.Error("expected spend to be allowed after reset")
	}
}

func TestWindowRollover(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	q, _ := setupRedisQuota(t, Config{Limit: 10, Clock: clock})
	ctx := context.Background()

	q.Allow(ctx, 10)
	if q.Allow(ctx, 1) {
		t.Fatal("expected exhausted budget in first window")
	}

	clock.now = clock.now.Add(24 * time.Hour)

	if !q.Allow(ctx, 1) {
		t.Error("expected a fresh budget in the next window")
	}

	remaining, err := q.Remaining(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, remaining, int64(9))
}

func TestMultipleInstancesShareBudget(t *testing.T) {
	key := fmt.Sprintf("test:quota:shared:%d", time.Now().UnixNano())
	q1, _ := setupRedisQuota(t, Config{Limit: 100, Key: key, InstanceID: "inst-1"})
	q2, _ := setupRedisQuota(t, Config{Limit: 100, Key: key, InstanceID: "inst-2"})
	ctx := context.Background()

	if !q1.Allow(ctx, 60) {
		t.Fatal("expected first instance spend to be allowed")
	}
	if q2.Allow(ctx, 60) {
		t.Error("expected second instance to see the shared spend")
	}
	if !q2.Allow(ctx, 40) {
		t.Error("expected second instance to spend the remainder")
	}
}

func TestFailClosed(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:1"}) // nothing listening
	defer rdb.Close()

	ql := &quotaLimiter{
		config: Config{
			Redis:        rdb,
			Key:          "test:quota:unreachable",
			Limit:        100,
			Window:       24 * time.Hour,
			RedisTimeout: 100 * time.Millisecond,
		},
		clock:               systemClock{},
		checkAndSpendScript: redis.NewScript(luaCheckAndSpend),
	}

	if ql.Allow(context.Background(), 1) {
		t.Error("expected deny when Redis is unreachable")
	}

	ql.config.FailOpen = true
	if !ql.Allow(context.Background(), 1) {
		t.Error("expected allow with FailOpen when Redis is unreachable")
	}
}
