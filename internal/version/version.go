// Package version reports build metadata for the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/notechat"

// buildVersion is set via -ldflags "-X pkt.systems/notechat/internal/version.buildVersion=...".
var buildVersion = ""

var readBuildInfo = debug.ReadBuildInfo

// Info describes the running build.
type Info struct {
	Module    string
	Version   string
	Revision  string
	Modified  bool
	GoVersion string
}

// Current returns the best available build metadata.
func Current() Info {
	info := Info{Module: defaultModule, Version: "v0.0.0-unknown", GoVersion: runtime.Version()}
	build, ok := readBuildInfo()
	if ok && build != nil {
		if path := strings.TrimSpace(build.Main.Path); path != "" {
			info.Module = path
		}
		vcs := readVCS(build)
		info.Revision = vcs.revision
		info.Modified = vcs.modified
		if v := strings.TrimSpace(build.Main.Version); v != "" && v != "(devel)" {
			info.Version = strings.TrimSuffix(v, "+dirty")
		} else if v := vcs.pseudoVersion(); v != "" {
			info.Version = v
		}
	}
	if v := strings.TrimSpace(buildVersion); v != "" {
		info.Version = strings.TrimSuffix(v, "+dirty")
	}
	return info
}

// String renders the version line printed by the CLI.
func (i Info) String() string {
	name := i.Module
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	out := fmt.Sprintf("%s %s", name, i.Version)
	var details []string
	if i.Revision != "" {
		rev := shortRevision(i.Revision)
		if i.Modified {
			rev += "+dirty"
		}
		details = append(details, "rev "+rev)
	}
	if i.GoVersion != "" {
		details = append(details, i.GoVersion)
	}
	if len(details) > 0 {
		out += " (" + strings.Join(details, ", ") + ")"
	}
	return out
}

type vcsInfo struct {
	revision string
	time     time.Time
	modified bool
}

func readVCS(build *debug.BuildInfo) vcsInfo {
	var vcs vcsInfo
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcs.revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				vcs.time = parsed
			}
		case "vcs.modified":
			vcs.modified = setting.Value == "true"
		}
	}
	return vcs
}

func (v vcsInfo) pseudoVersion() string {
	if v.revision == "" || v.time.IsZero() {
		return ""
	}
	return "v0.0.0-" + v.time.UTC().Format("20060102150405") + "-" + shortRevision(v.revision)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
