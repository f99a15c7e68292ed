// Package version holds build-time version information injected via ldflags.
package version

import "fmt"

// These variables are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent is the User-Agent header sent with every probe.
func UserAgent() string {
	return "statuswatch/" + Version
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("statuswatch %s (commit %s, built %s)", Version, Commit, Date)
}
