// Package version reports build metadata for the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

const unknown = "unknown"

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = unknown
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = unknown
	// BuildID is the build identifier, set via ldflags during build.
	BuildID = unknown
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

var (
	vcsOnce sync.Once
	vcs     vcsInfo
)

type vcsInfo struct {
	revision string
	time     string
	modified bool
}

// readVCS pulls the stamp `go build` embeds when built inside a checkout.
func readVCS() vcsInfo {
	vcsOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		vcs = vcsFromSettings(info.Settings)
	})
	return vcs
}

func vcsFromSettings(settings []debug.BuildSetting) vcsInfo {
	var v vcsInfo
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.time":
			v.time = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		}
	}
	return v
}

// resolve fills fields left at their defaults from the embedded VCS stamp.
func resolve(info Info, v vcsInfo) Info {
	if info.GitCommit == unknown && v.revision != "" {
		info.GitCommit = v.revision
		if len(info.GitCommit) > 12 {
			info.GitCommit = info.GitCommit[:12]
		}
		info.Modified = v.modified
	}
	if info.BuildDate == unknown && v.time != "" {
		info.BuildDate = v.time
	}
	return info
}

// Get returns version and build information.
func Get() Info {
	return resolve(Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}, readVCS())
}

// String returns the application version string.
func String() string {
	return Version
}

// Long returns a one-line description for --version output.
func Long() string {
	info := Get()
	s := fmt.Sprintf("videosqueeze %s (%s", info.Version, info.GitCommit)
	if info.Modified {
		s += "-dirty"
	}
	return s + fmt.Sprintf(", %s, %s)", info.BuildDate, info.Platform)
}
