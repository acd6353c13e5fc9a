package version

import (
	"fmt"
	"runtime"
)

// These variables are set by ldflags during build, e.g.
//
//	-X github.com/younsl/autosnap/internal/version.version=v1.0.0
var (
	version   = "dev"     // App version (e.g., v1.0.0)
	buildDate = "unknown" // Build date (RFC3339)
	gitCommit = "unknown" // Git commit SHA
)

// BuildInfo contains version and build details.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build information.
func Get() BuildInfo {
	return BuildInfo{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
	}
}

// String formats the build information for the version command
func (b BuildInfo) String() string {
	return fmt.Sprintf("autosnap %s (commit: %s, built: %s, %s)", b.Version, b.GitCommit, b.BuildDate, b.GoVersion)
}

// AppID returns the application id sent with AWS API requests
func (b BuildInfo) AppID() string {
	return "autosnap/" + b.Version
}
