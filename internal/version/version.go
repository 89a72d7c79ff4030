// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time, e.g.
//
//	-ldflags "-X github.com/olegiv/ochat-go/internal/version.version=v1.2.3"
var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string // Short git commit hash (e.g., "abc1234")
	BuildTime string // Build timestamp in RFC3339 format
}

// Current returns the version of the running binary. Without ldflags the
// VCS revision recorded by the Go toolchain is used as the commit.
func Current() Info {
	info := Info{Version: version, GitCommit: gitCommit, BuildTime: buildTime}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = shortCommit(s.Value)
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = s.Value
				}
			}
		}
	}
	return info
}

// String formats the version line printed by -version.
func (i Info) String(program string) string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", program, i.Version, i.GitCommit, i.BuildTime)
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
