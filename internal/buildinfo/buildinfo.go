// Package buildinfo exposes build and process metadata for the health
// endpoint.
package buildinfo

import "time"

// Injected via -ldflags at build time; empty in development builds.
var (
	Version    string
	CommitHash string
	BuildTime  string
)

// StartTime is the process start, RFC3339 in UTC.
var StartTime = time.Now().UTC().Format(time.RFC3339)
