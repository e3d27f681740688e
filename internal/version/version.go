package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Name is the product name shown in version strings
const Name = "MailFlow"

var (
	// Version is the semantic version number
	Version = "0.3.0"

	// GitCommit is the git commit hash (injected at build time)
	GitCommit = "unknown"

	// BuildDate is the build date (injected at build time)
	BuildDate = "unknown"

	// readBuildInfo is swapped in tests
	readBuildInfo = debug.ReadBuildInfo
)

// Info contains version information
type Info struct {
	Version     string `json:"version"`
	GitCommit   string `json:"git_commit"`
	BuildDate   string `json:"build_date"`
	BuildMethod string `json:"build_method"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
}

// GetInfo returns comprehensive version information
func GetInfo() Info {
	return Info{
		Version:     Version,
		GitCommit:   commit(),
		BuildDate:   BuildDate,
		BuildMethod: getBuildMethod(),
		GoVersion:   runtime.Version(),
		Platform:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// getBuildMethod tells ldflags builds from `go install` builds
func getBuildMethod() string {
	if GitCommit != "unknown" {
		return "make"
	}
	if bi, ok := readBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return "go-install"
	}
	return "unknown"
}

// commit falls back to the VCS stamp embedded by the go tool
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if bi, ok := readBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return GitCommit
}

// GetVersionString returns a formatted version string
func GetVersionString() string {
	c := commit()
	if c == "unknown" {
		return fmt.Sprintf("%s %s", Name, Version)
	}
	if len(c) > 8 {
		c = c[:8]
	}
	return fmt.Sprintf("%s %s (%s)", Name, Version, c)
}

// GetDetailedVersionString returns a detailed version string for `mailflow version`
func GetDetailedVersionString() string {
	info := GetInfo()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Name, info.Version)
	fmt.Fprintf(&b, "Git commit: %s\n", info.GitCommit)
	fmt.Fprintf(&b, "Build date: %s\n", info.BuildDate)
	fmt.Fprintf(&b, "Build method: %s\n", info.BuildMethod)
	fmt.Fprintf(&b, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(&b, "Platform: %s", info.Platform)
	return b.String()
}

// IsRelease returns true if this is a release version (not a dev build)
func IsRelease() bool {
	return Version != "" && commit() != "unknown" && !strings.Contains(Version, "dev")
}

// IsDevelopment returns true if this is a development build
func IsDevelopment() bool {
	return !IsRelease()
}
