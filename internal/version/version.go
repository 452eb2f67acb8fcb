package version

import "fmt"

// Set at build time with -ldflags "-X ...".
var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information for -version output.
func String() string {
	return fmt.Sprintf("calibconv %s (%s, built %s)", Version, GitSHA, BuildTime)
}
