// Package acquire downloads the best available audio track for a discovered
// candidate with yt-dlp.
//
// Files are named from the sanitized title plus the candidate's stable id so
// two candidates whose titles sanitize identically never share a path.
// Downloads are paced by a token-bucket limiter and retried with exponential
// backoff; every failed attempt removes whatever partial artifacts share the
// output stem.
package acquire
