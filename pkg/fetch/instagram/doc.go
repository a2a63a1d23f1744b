// Package instagram fetches public Instagram profile and post metadata.
//
// Instagram has no public stats API, so this client reads the open graph
// meta tags served with each page: the og:description of a profile carries
// its follower, following, and post counts in abbreviated form ("18.1M
// Followers, 42 Following, 1,600 Posts"), and post pages carry the caption
// and thumbnail.
//
// When an app access token is configured, posts are looked up through the
// oEmbed endpoint first, which returns cleaner attribution; scraping
// remains the fallback.
//
// Requests run through an adaptive rate limiter; Instagram throttles
// aggressive scrapers with HTTP 429, which the limiter retries with
// backoff while slowing its dispatch rate.
package instagram
