// Package youtube is a client for the subset of the YouTube Data API v3
// used for channel tracking: resolving channel references, reading channel
// statistics, and listing recent uploads with per-video counts.
//
// Requests run through an adaptive rate limiter, so API throttling (HTTP
// 429) is retried with backoff and sustained pressure slows the dispatch
// rate. When a quota limiter is configured, each call's unit cost is
// checked against the daily budget first; search costs 100 units, list
// operations cost 1.
//
//	yt, err := youtube.New(youtube.Config{APIKey: key, Quota: q})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer yt.Close()
//
//	ch, err := yt.ResolveChannel(ctx, "@mkbhd")
//	if err != nil {
//		log.Fatal(err)
//	}
//	videos, err := yt.RecentUploads(ctx, ch.UploadsPlaylistID, 25)
package youtube
