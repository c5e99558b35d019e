// Package settings provides build metadata, per-run settings, and context
// helpers used across the archsearch commands.
package settings

import "fmt"

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "archsearch"

// VersionInformation is populated at build time via ldflags and holds the
// commit hash, semantic version, and build timestamp of the running binary.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build, including the commit hash,
// build version, and build timestamp.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// UserAgent is sent with every outbound collection request.
func (v VersionInfo) UserAgent() string {
	return fmt.Sprintf("%s/%s", CliBinaryName, v.BuildVersion)
}

// Mode identifies which surface a run drives.
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeQuery       Mode = "query"
	ModeServe       Mode = "serve"
)

// Run holds settings for a single execution of the application.
type Run struct {
	MinLogLevel int8
	Mode        Mode
	LogFile     string
	NoColor     bool
	ExitOnError bool
}

// NewCliParams returns the defaults for an interactive run: info level,
// colors on, non-zero exit on error.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		Mode:        ModeInteractive,
		NoColor:     false,
		ExitOnError: true,
	}
}

// Interactive reports whether the run owns the terminal.
func (r *Run) Interactive() bool {
	return r != nil && r.Mode == ModeInteractive
}
