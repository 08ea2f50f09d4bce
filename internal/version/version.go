// Package version provides build information for the movers tool.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Module    string `json:"module,omitempty"`
	Dirty     bool   `json:"dirty"`
	Arrow     string `json:"arrow,omitempty"`
}

// arrowModule is reported separately since it determines the Parquet writer.
const arrowModule = "github.com/apache/arrow-go/v18"

// Info returns the build information of the running binary.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.HasSuffix(GitCommit, "-dirty"),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Module = bi.Main.Path
		for _, dep := range bi.Deps {
			if dep.Path == arrowModule {
				info.Arrow = dep.Version
			}
		}
		for _, s := range bi.Settings {
			if s.Key == "vcs.modified" && s.Value == "true" {
				info.Dirty = true
			}
		}
	}

	return info
}

// Short returns the version and abbreviated commit on one line.
func (b BuildInfo) Short() string {
	if b.GitCommit == unknownValue {
		return b.Version
	}
	return fmt.Sprintf("%s (%s)", b.Version, abbreviate(b.GitCommit))
}

// String returns a multi-line description suitable for the version command.
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("movers: commercial district change rankings\n")
	fmt.Fprintf(&sb, "Version: %s", b.Version)
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue {
		fmt.Fprintf(&sb, "Build Date: %s\n", b.BuildDate)
	}
	if b.GitCommit != unknownValue {
		fmt.Fprintf(&sb, "Git Commit: %s\n", abbreviate(b.GitCommit))
	}
	fmt.Fprintf(&sb, "Go Version: %s\n", b.GoVersion)
	if b.Arrow != "" {
		fmt.Fprintf(&sb, "Arrow: %s\n", b.Arrow)
	}

	return sb.String()
}

// IsRelease returns true if this is a release version (not dev)
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}

func abbreviate(commit string) string {
	commit = strings.TrimSuffix(commit, "-dirty")
	if len(commit) > commitHashLength {
		return commit[:commitHashLength]
	}
	return commit
}
