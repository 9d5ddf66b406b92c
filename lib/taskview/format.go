// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/hawkw/consolation/lib/tasks"
)

// durationDigits is the number of significant digits shown for
// durations.
const durationDigits = 4

// FormatDuration renders d with four significant digits in the largest
// unit that keeps at least one digit before the decimal point:
// "1.500s", "12.35ms", "250.0µs", "999ns".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	var value float64
	var unit string
	switch {
	case d < time.Microsecond:
		return strconv.FormatInt(int64(d), 10) + "ns"
	case d < time.Millisecond:
		value, unit = float64(d)/float64(time.Microsecond), "µs"
	case d < time.Second:
		value, unit = float64(d)/float64(time.Millisecond), "ms"
	default:
		value, unit = d.Seconds(), "s"
	}
	integerDigits := len(strconv.FormatInt(int64(value), 10))
	decimals := max(durationDigits-integerDigits, 0)
	return strconv.FormatFloat(value, 'f', decimals, 64) + unit
}

// stateBadge is the STATE cell for a task state.
func stateBadge(state tasks.TaskState, ascii bool) string {
	if ascii {
		switch state {
		case tasks.Running:
			return "RUN"
		case tasks.Idle:
			return "IDLE"
		default:
			return "DONE"
		}
	}
	switch state {
	case tasks.Running:
		return "▶"
	case tasks.Idle:
		return "⏸"
	default:
		return "⏹"
	}
}

// padRight fits value into width cells, truncating with an ellipsis
// or padding with spaces on the right.
func padRight(value string, width int) string {
	value = fit(value, width)
	return value + strings.Repeat(" ", width-ansi.StringWidth(value))
}

// padLeft is padRight for right-aligned (numeric) columns.
func padLeft(value string, width int) string {
	value = fit(value, width)
	return strings.Repeat(" ", width-ansi.StringWidth(value)) + value
}

func fit(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(value) > width {
		return ansi.Truncate(value, width, "…")
	}
	return value
}
