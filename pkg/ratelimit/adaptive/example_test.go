package adaptive_test

import (
	"context"
	"fmt"

	"github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/ratelimit/adaptive"
)

// Example demonstrates basic usage of the adaptive rate limiter.
func Example() {
	limiter := adaptive.New()
	defer limiter.Close()

	value, err := limiter.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		// Call a vendor API here.
		return "video metadata", nil
	})
	if err != nil {
		fmt.Println("fetch failed:", err)
		return
	}
	fmt.Println("fetched:", value)

	// Output: fetched: video metadata
}

// Example_stats demonstrates inspecting limiter state.
func Example_stats() {
	limiter := adaptive.NewWithConfig(adaptive.Config{InitialRate: 2})
	defer limiter.Close()

	_, _ = limiter.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})

	s := limiter.Stats()
	fmt.Printf("requests=%d successes=%d breaker_open=%v\n",
		s.TotalRequests, s.SuccessfulRequests, s.CircuitOpen)

	// Output: requests=1 successes=1 breaker_open=false
}

// Example_retryableErrors demonstrates how vendor clients surface transient
// failures so the limiter retries them.
func Example_retryableErrors() {
	limiter := adaptive.NewWithConfig(adaptive.Config{
		InitialRate: 5,
		MinRate:     5,
		MaxRate:     10,
	})
	defer limiter.Close()

	attempts := 0
	value, err := limiter.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts == 1 {
			// A 429 is retryable; the caller never sees it.
			return nil, errors.NewStatusError(429, "https://api.example.com/v3/videos", "rate limited")
		}
		return "posts", nil
	})
	if err != nil {
		fmt.Println("failed:", err)
		return
	}
	fmt.Printf("value=%v attempts=%d\n", value, attempts)

	// Output: value=posts attempts=2
}
