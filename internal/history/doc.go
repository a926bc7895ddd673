// Package history records pipeline runs in SQLite.
//
// Each run stores its work items and the terminal outcome of every candidate
// so operators can see why a topic produced no transcript without replaying
// logs. The database is an audit aid: callers treat write failures as
// warnings and never fail a run because of them.
//
// Schema changes bump schemaVersion in schema.go; an older database must be
// deleted to adopt the new schema.
package history
