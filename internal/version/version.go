// Package version exposes dsclient build metadata.
package version

import (
	"runtime"
	"strings"
)

// Build metadata, set with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the one-line client version.
func String() string {
	return "dsclient " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// Report renders the client line followed by the engine's own version text.
func Report(engineVersions string) string {
	engineVersions = strings.TrimSpace(engineVersions)
	if engineVersions == "" {
		return String() + "\n"
	}
	return String() + "\n" + engineVersions + "\n"
}
