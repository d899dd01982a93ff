// Package version exposes build metadata injected at link time.
package version

// Set via -ldflags at build time, e.g.
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info holds the build metadata for the running binary.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Get returns the build metadata for the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}
}
