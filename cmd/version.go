package cmd

import (
	"fmt"
	"runtime"
	rdebug "runtime/debug"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/archsearch/pkg/settings"
)

// versionInfo is the build metadata printed by version and --version.
type versionInfo struct {
	Name      string
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
}

// buildVersionData prefers the ldflags metadata and falls back to the module
// build info for binaries installed with go install.
func buildVersionData() versionInfo {
	v := versionInfo{
		Name:      settings.CliBinaryName,
		Version:   settings.VersionInformation.BuildVersion,
		Commit:    settings.VersionInformation.Commit,
		BuildTime: settings.VersionInformation.BuildTime,
		GoVersion: runtime.Version(),
	}
	info, ok := rdebug.ReadBuildInfo()
	if !ok {
		return v
	}
	if info.GoVersion != "" {
		v.GoVersion = info.GoVersion
	}
	if v.Version == "" || v.Version == "v0.0.0-nightly" {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			v.Version = info.Main.Version
		}
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if (v.Commit == "" || v.Commit == "unknown") && len(s.Value) >= 7 {
				v.Commit = s.Value[:7]
			}
		case "vcs.time":
			if v.BuildTime == "" || v.BuildTime == "unknown" {
				v.BuildTime = s.Value
			}
		}
	}
	return v
}

// versionString builds a human-readable version string for CLI output and
// cobra's --version flag.
func versionString() string {
	v := buildVersionData()
	return fmt.Sprintf("%s %s (commit %s, built %s, go %s)", v.Name, v.Version, v.Commit, v.BuildTime, v.GoVersion)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print archsearch version",
	Args:  cobra.NoArgs,
	// version must work with a broken config file
	PersistentPreRun: func(*cobra.Command, []string) {},
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
		return err
	},
}
