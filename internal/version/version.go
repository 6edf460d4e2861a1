// Package version carries build metadata injected through -ldflags.
package version

var (
	// Version is the release tag of this build.
	Version = "dev"
	// GitSHA is the git commit the build was cut from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
