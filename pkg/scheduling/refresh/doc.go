// Package refresh schedules periodic data refreshes for tracked profiles.
//
// A Scheduler holds a set of sources, each identified by ID and carrying a
// vendor kind and handle. Sources are refreshed either at a fixed interval
// or on a cron schedule (six-field expressions with a seconds field). Due
// sources are dispatched to a bounded set of worker goroutines, so a slow
// vendor API cannot stall the scheduling loop.
//
// A source that is still refreshing when its next run comes due is skipped
// for that tick rather than run twice.
//
// # Usage
//
//	s, err := refresh.New(refresh.Config{
//		Refresh: func(ctx context.Context, src refresh.Source) error {
//			return fetcher.Refresh(ctx, src.Kind, src.Handle)
//		},
//		MaxConcurrent: 8,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	s.Add(refresh.Source{ID: "yt:mkbhd", Kind: "youtube", Handle: "UCBJycsmduvYEL83R_U4JriQ"}, time.Hour)
//	s.AddCron(refresh.Source{ID: "ig:nasa", Kind: "instagram", Handle: "nasa"}, "0 0 6 * * *")
//
//	s.Start()
//	defer func() { <-s.Stop() }()
package refresh
