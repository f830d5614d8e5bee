// Package version exposes the featmark build identity. Release builds stamp
// the package variables through -ldflags; everything else falls back to the
// module info the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Stamped at build time:
//
//	go build -ldflags "-X featmark/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is the serializable view served by the health endpoint and the
// version command.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Modified  bool      `json:"modified,omitempty"`
}

// GetBuildInfo collects the full build identity.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: GetBuildTime(),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Modified:  IsDirty(),
	}
}

// GetVersion prefers the stamped version, then the module version, then a
// dev-<commit> marker from embedded VCS info.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		if revision := vcsSetting(info, "vcs.revision"); len(revision) >= 7 {
			return "dev-" + revision[:7]
		}
	}

	return "dev"
}

// GetGitCommit returns the full commit hash the binary was built from.
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if revision := vcsSetting(info, "vcs.revision"); revision != "" {
			return revision
		}
	}

	return "unknown"
}

// GetBuildTime returns the stamped build time, falling back to the VCS
// commit time. Zero when neither is known.
func GetBuildTime() time.Time {
	if BuildTime != "" && BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			return t
		}
		return time.Time{}
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if stamp := vcsSetting(info, "vcs.time"); stamp != "" {
			if t, err := time.Parse(time.RFC3339, stamp); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}

// GetShortVersion is the one-line form shown by --version and /health.
func GetShortVersion() string {
	version := GetVersion()
	commit := GetGitCommit()

	if commit == "unknown" || len(commit) < 7 {
		return version
	}
	if version == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", version, commit[:7])
}

// GetDetailedVersion is the multi-line form printed by the version command.
func GetDetailedVersion() string {
	info := GetBuildInfo()

	var b strings.Builder
	fmt.Fprintf(&b, "Version:  %s\n", info.Version)
	if info.GitCommit != "unknown" {
		commit := info.GitCommit
		if info.Modified {
			commit += " (modified)"
		}
		fmt.Fprintf(&b, "Commit:   %s\n", commit)
	}
	if !info.BuildTime.IsZero() {
		fmt.Fprintf(&b, "Built:    %s\n", info.BuildTime.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Go:       %s\n", info.GoVersion)
	fmt.Fprintf(&b, "Platform: %s", info.Platform)
	return b.String()
}

// IsRelease reports whether this binary carries a stamped release version.
func IsRelease() bool {
	version := GetVersion()
	return version != "dev" && !strings.HasPrefix(version, "dev-")
}

// IsDirty reports whether the working tree had local changes at build time.
func IsDirty() bool {
	if info, ok := debug.ReadBuildInfo(); ok {
		return vcsSetting(info, "vcs.modified") == "true"
	}
	return false
}

func vcsSetting(info *debug.BuildInfo, key string) string {
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
