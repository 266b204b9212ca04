// Package misc keeps small helpers which do not belong anywhere else.
package misc

import (
	"runtime/debug"
)

const appName = "doctoc"

// Set at build time via -ldflags, fall back to module build info otherwise.
var (
	version = ""
	gitHash = ""
)

// GetAppName returns program name to be used in logs, temporary file names and
// similar places.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	if len(version) > 0 {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) > 0 {
		return bi.Main.Version
	}
	return "unknown"
}

// GetGitHash returns VCS revision recorded in the binary.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
