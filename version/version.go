package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Product is the name reported in the User-Agent header.
const Product = "querykit"

// Set with -ldflags "-X". Empty values are filled from the module build info.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Branch    string `json:"branch,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get returns the build info of the running binary.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    GitCommit,
		Branch:    GitBranch,
		BuildTime: BuildTime,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// Short is the version with the abbreviated commit, e.g. "1.2.0-abc1234".
func (i Info) Short() string {
	if i.Commit == "" {
		return i.Version
	}
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	s := i.Version + "-" + commit
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// String renders the info as `querykit version` prints it.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Product, i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&b, "  commit:  %s", i.Commit)
		if i.Dirty {
			b.WriteString(" (dirty)")
		}
		b.WriteString("\n")
	}
	if i.Branch != "" {
		fmt.Fprintf(&b, "  branch:  %s\n", i.Branch)
	}
	if i.BuildTime != "" {
		fmt.Fprintf(&b, "  built:   %s\n", i.BuildTime)
	}
	if i.GoVersion != "" {
		fmt.Fprintf(&b, "  go:      %s\n", i.GoVersion)
	}
	return b.String()
}

// UserAgent is the User-Agent header value, e.g. "querykit/1.2.0-abc1234".
func UserAgent() string {
	return Product + "/" + Get().Short()
}
