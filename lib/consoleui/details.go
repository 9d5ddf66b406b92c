// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hawkw/consolation/lib/instrument"
	"github.com/hawkw/consolation/lib/tasks"
	"github.com/hawkw/consolation/lib/taskview"
)

// detailsSession is one visit to the detail view. Stream messages
// carry the session they belong to, so frames from a stream the user
// already left are recognized and dropped.
type detailsSession struct {
	id     uint64
	ref    tasks.TaskRef
	stream *instrument.Stream[instrument.TaskDetails]
	latest *instrument.TaskDetails
	ended  bool
	err    string
}

func (session *detailsSession) close() {
	if session.stream != nil {
		session.stream.Close()
		session.stream = nil
	}
}

// percentiles shown in the poll time table.
var percentiles = []float64{10, 25, 50, 75, 90, 95, 99}

// renderDetails draws the detail view for one task in at most height
// lines.
func renderDetails(session *detailsSession, now time.Time, theme taskview.Theme, width, height int) string {
	label := lipgloss.NewStyle().Foreground(theme.FaintText)
	title := lipgloss.NewStyle().Bold(true)

	task, ok := session.ref.Upgrade()
	if !ok {
		return title.Render(fmt.Sprintf("Task %d", session.id)) + "\n" +
			label.Render("task completed and is no longer tracked")
	}

	var lines []string
	name := task.Name
	if name == "" {
		name = "<unnamed>"
	}
	state := lipgloss.NewStyle().Foreground(theme.StateColor(task.State())).Render(strings.ToUpper(task.State().String()))
	lines = append(lines, title.Render(fmt.Sprintf("Task %d: %s", task.ID, name))+" "+state)

	field := func(key, value string) {
		if value != "" {
			lines = append(lines, label.Render(fmt.Sprintf("%-10s", key))+" "+value)
		}
	}
	field("Target", task.Target)
	field("Kind", task.Kind)
	field("Location", task.Location)
	for _, spawnField := range task.Fields {
		field(spawnField.Name, spawnField.Value)
	}

	lines = append(lines, "")
	field("Total", taskview.FormatDuration(task.Total(now)))
	field("Busy", fmt.Sprintf("%s (%s)", taskview.FormatDuration(task.Busy(now)), percent(task.Busy(now), task.Total(now))))
	field("Idle", fmt.Sprintf("%s (%s)", taskview.FormatDuration(task.Idle(now)), percent(task.Idle(now), task.Total(now))))
	field("Polls", strconv.FormatUint(task.Polls(), 10))
	field("Wakes", fmt.Sprintf("%d (%d self)", task.Wakes(), task.SelfWakes()))
	if task.IsCompleted() {
		field("Completed", taskview.FormatDuration(task.CompletedFor(now))+" ago")
	}

	lines = append(lines, "")
	switch {
	case session.err != "":
		lines = append(lines, label.Render("Poll times unavailable: "+session.err))
	case session.latest == nil:
		lines = append(lines, label.Render("Waiting for poll times..."))
	default:
		lines = append(lines, renderPollTimes(session.latest.PollTimes, label)...)
		if session.ended {
			lines = append(lines, label.Render("(details stream ended)"))
		}
	}

	if len(lines) > height {
		lines = lines[:max(height, 0)]
	}
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = lipgloss.NewStyle().MaxWidth(width).Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderPollTimes(histogram instrument.PollHistogram, label lipgloss.Style) []string {
	count := histogram.Count()
	lines := []string{label.Render(fmt.Sprintf("Poll times (%d samples)", count))}
	if count == 0 {
		return lines
	}
	for _, p := range percentiles {
		lines = append(lines, fmt.Sprintf("  %s %s",
			label.Render(fmt.Sprintf("p%-3s", strconv.FormatFloat(p, 'f', -1, 64))),
			taskview.FormatDuration(histogram.Percentile(p))))
	}
	lines = append(lines, fmt.Sprintf("  %s %s", label.Render("max "), taskview.FormatDuration(histogram.Max)))
	return lines
}

func percent(part, whole time.Duration) string {
	if whole <= 0 {
		return "0%"
	}
	return strconv.FormatFloat(float64(part)/float64(whole)*100, 'f', 1, 64) + "%"
}
