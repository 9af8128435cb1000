// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/modman/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/modman/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/modman/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

// Homepage is advertised to registries in the User-Agent header.
const Homepage = "https://github.com/matzehuels/modman"

var (
	// Version is the semantic version (e.g., "v1.2.3").
	// Set via ldflags: -X github.com/matzehuels/modman/pkg/buildinfo.Version=...
	Version = "0.1.0-dev"

	// Commit is the git commit SHA.
	// Set via ldflags: -X github.com/matzehuels/modman/pkg/buildinfo.Commit=...
	Commit = "none"

	// Date is the build timestamp.
	// Set via ldflags: -X github.com/matzehuels/modman/pkg/buildinfo.Date=...
	Date = "unknown"
)

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent returns the client identifier sent with every registry request,
// in the "name/version (homepage)" form registries ask for.
func UserAgent() string {
	return fmt.Sprintf("modman/%s (%s)", Version, Homepage)
}
