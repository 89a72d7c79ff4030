// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfoStruct(t *testing.T) {
	// Test that Info struct can be created and fields are accessible
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		BuildTime: "2025-01-30T12:00:00Z",
	}

	if info.Version != "v1.0.0" {
		t.Errorf("Version = %q, want %q", info.Version, "v1.0.0")
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("GitCommit = %q, want %q", info.GitCommit, "abc1234")
	}
	if info.BuildTime != "2025-01-30T12:00:00Z" {
		t.Errorf("BuildTime = %q, want %q", info.BuildTime, "2025-01-30T12:00:00Z")
	}
}

func TestInfoZeroValue(t *testing.T) {
	// Test zero value (before ldflags injection)
	var info Info

	if info.Version != "" {
		t.Errorf("zero value Version = %q, want empty", info.Version)
	}
	if info.GitCommit != "" {
		t.Errorf("zero value GitCommit = %q, want empty", info.GitCommit)
	}
	if info.BuildTime != "" {
		t.Errorf("zero value BuildTime = %q, want empty", info.BuildTime)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.0.0", GitCommit: "abc1234", BuildTime: "2025-01-30T12:00:00Z"}
	want := "ochat v1.0.0 (commit: abc1234, built: 2025-01-30T12:00:00Z)"
	if got := info.String("ochat"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCurrent(t *testing.T) {
	info := Current()
	if info.Version != "dev" {
		t.Errorf("Version = %q, want dev", info.Version)
	}
	if info.GitCommit == "" {
		t.Error("GitCommit is empty")
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortCommit = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit = %q", got)
	}
}
