// Package fetch contains vendor API clients for profile data collection.
//
// Each subpackage wraps one vendor:
//   - youtube: YouTube Data API v3 channels and uploads
//   - instagram: Instagram profile and post scraping
//   - assemblyai: AssemblyAI audio transcription
//
// All clients route their requests through an adaptive rate limiter, so
// vendor throttling slows the whole client down instead of failing
// individual calls. Vendors that meter usage in units also consult a quota
// limiter before spending.
package fetch
