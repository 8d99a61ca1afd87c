package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the application
	Version = "0.3.0"

	// DataFormatVersion is the version of the exported table layout. It
	// changes when view columns are renamed or reordered.
	DataFormatVersion = "v1"

	// APIVersion is the version of the HTTP API
	APIVersion = "v1"
)

// Set during build using ldflags, see build.go.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// VersionString returns "marketlens vX.Y.Z".
func VersionString() string {
	return fmt.Sprintf("marketlens v%s", Version)
}

// FullVersionString adds build metadata to VersionString.
func FullVersionString() string {
	return fmt.Sprintf("%s (built: %s, commit: %s, branch: %s, go: %s, os: %s/%s)",
		VersionString(), BuildTime, GitCommit, GitBranch,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
