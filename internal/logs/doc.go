// Package logs reads reelscribe log files for the logs command.
//
// Tail returns the last lines of a file and can poll for appended lines from
// a byte offset. LatestFile locates the newest daily log in the log directory.
package logs
