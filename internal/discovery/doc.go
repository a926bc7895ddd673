// Package discovery finds candidate videos for a topic through yt-dlp search
// and narrows them with the recency and duration filter.
//
// Search never returns an error: provider failures and malformed result
// lines degrade to an empty or partial candidate list plus a warning, so a
// single unreachable search only costs its own work item.
package discovery
