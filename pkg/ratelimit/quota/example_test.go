package quota_test

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buzzhunt/buzzflow/pkg/ratelimit/quota"
)

// Example demonstrates tracking a daily vendor API unit budget.
func Example() {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	ctx := context.Background()
	if rdb.Ping(ctx).Err() != nil {
		fmt.Println("Redis not available, skipping example")
		return
	}

	q, err := quota.New(quota.Config{
		Redis: rdb,
		Key:   fmt.Sprintf("example:youtube:%d", time.Now().UnixNano()),
		Limit: 10000,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer func() {
		q.Reset(ctx)
		q.Close()
	}()

	// A channel search costs 100 units, a playlist page costs 1
	if q.Allow(ctx, 100) {
		fmt.Println("search allowed")
	}
	if q.Allow(ctx, 1) {
		fmt.Println("list allowed")
	}

	remaining, _ := q.Remaining(ctx)
	fmt.Printf("remaining: %d\n", remaining)
}
