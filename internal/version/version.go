package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats build metadata for the version command.
func String() string {
	return "voxtask " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
