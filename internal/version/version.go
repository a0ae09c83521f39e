package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the single-line build identifier used by the CLI and
// embedded in generated reports.
func String() string {
	return fmt.Sprintf("phase.report %s (%s, built %s)", Version, GitSHA, BuildTime)
}
