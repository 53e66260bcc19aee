// Package query provides go-command compatible read-side helpers: username
// availability checks, reservation detail and listings, profile lookups, and
// the activity feed. Queries never mutate reservation state; expiry is
// interpreted at read time so abandoned holds report as available without
// waiting for a sweep.
package query
