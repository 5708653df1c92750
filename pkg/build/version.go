// Package build exposes version information stamped in at link time.
package build

// Set with -ldflags "-X github.com/glue-go/uccookie/pkg/build.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)
