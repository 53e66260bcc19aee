// Package activity provides the default persistence helpers for the
// go-usernames ActivitySink. The Repository implements both the sink (writes)
// and the ActivityRepository read-side contract so the username workflow can
// log reserve/confirm/release/sweep events and admin dashboards can query
// them. Host applications can swap the repository if they prefer a different
// storage engine.
package activity
