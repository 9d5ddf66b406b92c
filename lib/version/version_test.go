// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"runtime/debug"
	"strings"
	"testing"
)

func restoreVariables(t *testing.T) {
	t.Helper()
	commit, dirty, buildTime, version := GitCommit, GitDirty, BuildTime, Version
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime, Version = commit, dirty, buildTime, version
	})
}

func TestApplyBuildSettings(t *testing.T) {
	restoreVariables(t)
	GitCommit, GitDirty, BuildTime = "unknown", "false", "unknown"

	applyBuildSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-03-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	if GitCommit != "0123456" {
		t.Errorf("GitCommit = %q, want the short revision", GitCommit)
	}
	if BuildTime != "2026-03-01T12:00:00Z" {
		t.Errorf("BuildTime = %q", BuildTime)
	}
	if GitDirty != "true" {
		t.Errorf("GitDirty = %q", GitDirty)
	}
}

func TestApplyBuildSettingsKeepsLinkerValues(t *testing.T) {
	restoreVariables(t)
	GitCommit, BuildTime = "abc1234", "2026-02-10T08:00:00Z"

	applyBuildSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-03-01T12:00:00Z"},
	})

	if GitCommit != "abc1234" || BuildTime != "2026-02-10T08:00:00Z" {
		t.Errorf("linker values overwritten: %s %s", GitCommit, BuildTime)
	}
}

func TestPrint(t *testing.T) {
	restoreVariables(t)
	Version = "1.2.3"

	var output bytes.Buffer
	Print(&output, "consolation")
	got := output.String()
	if !strings.HasPrefix(got, "consolation 1.2.3 (") {
		t.Errorf("Print output = %q", got)
	}
	if !strings.Contains(got, "Go: ") || !strings.HasSuffix(got, "\n") {
		t.Errorf("Print output lacks the Go version line: %q", got)
	}
}
