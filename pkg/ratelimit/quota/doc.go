// Package quota provides Redis-backed unit quota accounting for vendor APIs
// with fixed windows shared across application instances.
//
// Many vendor APIs meter usage in units per day rather than requests per
// second. The YouTube Data API, for example, grants a daily unit budget and
// charges different unit costs per operation (a search costs 100 units, a
// list costs 1). This package tracks such budgets in Redis so that every
// instance of an application draws from the same pool.
//
// # Accounting Model
//
// Spending is recorded in fixed windows aligned to UTC. Each window has its
// own Redis key holding the units spent so far. A Lua script performs the
// check-and-spend atomically, so two instances can never jointly overspend
// the budget.
//
// Window keys expire automatically after two window lengths, keeping the
// previous window available for inspection.
//
// # Usage
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	q, err := quota.New(quota.Config{
//		Redis: rdb,
//		Key:   "buzzhunt:youtube",
//		Limit: 10000,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer q.Close()
//
//	if q.Allow(ctx, 100) {
//		// spend the 100-unit search call
//	}
//
// # Failure Modes
//
// By default Allow denies when Redis is unreachable, which protects the
// vendor budget at the cost of availability. Set Config.FailOpen to prefer
// availability instead.
package quota
