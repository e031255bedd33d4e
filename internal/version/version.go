// Package version exposes build metadata set via ldflags.
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns a single-line version description.
func String() string {
	return fmt.Sprintf("platekit %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
