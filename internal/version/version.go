// Package version reports the dron release and build metadata.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionFile string

// Set at build time:
//
//	go build -ldflags "-X github.com/leefowlercu/dron/internal/version.gitCommit=$(git rev-parse --short HEAD)"
var (
	gitCommit string
	buildDate string
)

// Info is the release and build metadata of the running binary.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

// String formats Info for `dron version`.
func (i Info) String() string {
	return fmt.Sprintf("Version:    %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s\nPlatform:   %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// Short returns "dron <version> (<commit>)".
func (i Info) Short() string {
	return fmt.Sprintf("dron %s (%s)", i.Version, i.GitCommit)
}

// Get returns the metadata of the running binary.
func Get() Info {
	return Info{
		Version:   getVersion(),
		GitCommit: getGitCommit(),
		BuildDate: getBuildDate(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func getVersion() string {
	return strings.TrimSpace(versionFile)
}

// getGitCommit prefers the linker flag, then VCS stamping from `go install`.
func getGitCommit() string {
	if gitCommit != "" {
		return gitCommit
	}
	if revision, dirty := readBuildInfo(); revision != "" {
		if dirty {
			return revision + "-dirty"
		}
		return revision
	}
	return "unknown"
}

func getBuildDate() string {
	if buildDate != "" {
		return buildDate
	}
	return "unknown"
}

func readBuildInfo() (revision string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	return parseSettings(info.Settings)
}

// parseSettings extracts the short revision and dirty flag from build settings.
func parseSettings(settings []debug.BuildSetting) (revision string, dirty bool) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return revision, dirty
}
