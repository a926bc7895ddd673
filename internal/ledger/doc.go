// Package ledger reads the CSV work-list that drives a run and writes the
// transcript path of each row back into it.
//
// The file must carry a header row with the topic and look-back columns. A
// missing file or column is a configuration error raised before any work
// starts. Saving replaces the file atomically and preserves every other
// column in its original position.
package ledger
