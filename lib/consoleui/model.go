// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hawkw/consolation/lib/conn"
	"github.com/hawkw/consolation/lib/instrument"
	"github.com/hawkw/consolation/lib/tasks"
	"github.com/hawkw/consolation/lib/taskview"
)

// Options configures a Model.
type Options struct {
	Connection Connection
	// Retain is how long completed tasks stay listed.
	Retain time.Duration
	Theme  taskview.Theme
	Keys   KeyMap
	// ASCII avoids non-ASCII glyphs in the table.
	ASCII bool
}

// chromeLines is the number of screen lines outside the table: status,
// help, and the log line.
const chromeLines = 3

// Model is the console's bubbletea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	connection Connection
	state      *tasks.State
	list       *taskview.List
	details    *detailsSession

	keys  KeyMap
	help  help.Model
	theme taskview.Theme

	width  int
	height int
	ready  bool

	logLine     string
	logLevel    slog.Level
	logSequence int

	// err is the error that ended the program, if any.
	err error
}

// NewModel creates a model for the given connection. The connection is
// closed when the user quits.
func NewModel(options Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	helpModel := help.New()
	helpModel.Styles.ShortKey = lipgloss.NewStyle().Foreground(options.Theme.NormalText)
	helpModel.Styles.ShortDesc = lipgloss.NewStyle().Foreground(options.Theme.HelpText)
	helpModel.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(options.Theme.HelpText)

	return Model{
		ctx:        ctx,
		cancel:     cancel,
		connection: options.Connection,
		state:      tasks.NewState(options.Retain),
		list: taskview.NewList(taskview.Options{
			Theme:  options.Theme,
			Keys:   options.Keys.Table,
			SortBy: tasks.DefaultSortBy,
			ASCII:  options.ASCII,
		}),
		keys:  options.Keys,
		help:  helpModel,
		theme: options.Theme,
	}
}

// Err returns the error that ended the program: a configuration error
// in the target, for example. Nil after a normal quit.
func (model Model) Err() error { return model.err }

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(waitForMessage(model.ctx, model.connection), scheduleRedraw())
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.help.Width = message.Width
		model.ready = true

	case tea.KeyMsg:
		return model.handleKey(message)

	case connMessageMsg:
		model.apply(message.message)
		return model, waitForMessage(model.ctx, model.connection)

	case connErrorMsg:
		if model.ctx.Err() != nil || errors.Is(message.err, conn.ErrClosed) {
			return model, nil
		}
		model.err = message.err
		return model, model.quit()

	case redrawMsg:
		return model, scheduleRedraw()

	case detailsOpenedMsg:
		if model.details != message.session {
			message.stream.Close()
			return model, nil
		}
		model.details.stream = message.stream
		return model, receiveDetails(message.session, message.stream)

	case detailsFrameMsg:
		if model.details != message.session {
			return model, nil
		}
		model.details.latest = &message.details
		return model, receiveDetails(message.session, model.details.stream)

	case detailsEndedMsg:
		if model.details == message.session {
			model.details.ended = true
			model.details.close()
		}

	case detailsErrorMsg:
		if model.details != message.session {
			return model, nil
		}
		model.details.err = message.err.Error()
		model.details.close()
		return model.showLog(slog.LevelError, fmt.Sprintf("cannot watch task %d: %v", message.session.id, message.err))

	case logRecordMsg:
		return model.showLog(message.Level, message.Summary)

	case logRecordFadeMsg:
		if message.sequence == model.logSequence {
			model.logLine = ""
		}
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, model.quit()

	case key.Matches(message, model.keys.Pause):
		if model.state.Paused() {
			return model, sendResume(model.ctx, model.connection)
		}
		return model, sendPause(model.ctx, model.connection)
	}

	if model.details != nil {
		if key.Matches(message, model.keys.Back) {
			model.details.close()
			model.details = nil
		}
		return model, nil
	}

	if key.Matches(message, model.keys.Details) {
		ref, ok := model.list.Selected()
		if !ok {
			return model, nil
		}
		model.details = &detailsSession{id: ref.ID(), ref: ref}
		return model, openDetails(model.ctx, model.connection, model.details)
	}

	model.list.HandleKey(message)
	return model, nil
}

// apply folds one stream frame into the task registry.
func (model *Model) apply(message conn.Message) {
	switch message := message.(type) {
	case conn.UpdateMessage:
		model.state.Apply(message.Update)
	case conn.StateMessage:
		model.state.SetTemporality(message.State.Temporality)
	}
}

func (model Model) showLog(level slog.Level, summary string) (tea.Model, tea.Cmd) {
	model.logSequence++
	model.logLine = summary
	model.logLevel = level
	sequence := model.logSequence
	return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
		return logRecordFadeMsg{sequence: sequence}
	})
}

// quit stops background work and closes the connection, which releases
// both streams.
func (model Model) quit() tea.Cmd {
	model.cancel()
	if model.details != nil {
		model.details.close()
	}
	model.connection.Close()
	return tea.Quit
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Connecting..."
	}

	bodyHeight := max(model.height-chromeLines, 0)
	var body string
	if model.details != nil {
		body = renderDetails(model.details, model.state.LastUpdatedAt(), model.theme, model.width, bodyHeight)
	} else {
		body = model.list.Render(model.state, model.width, bodyHeight)
	}
	body = padLines(body, bodyHeight)

	sections := []string{
		model.renderStatus(),
		model.renderHelp(),
		body,
		model.renderLogLine(),
	}
	return strings.Join(sections, "\n")
}

// renderStatus draws the connection status line with task counts.
func (model Model) renderStatus() string {
	status := model.connection.Status()
	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(model.theme.Connected)
	if !status.Connected {
		statusStyle = statusStyle.Foreground(model.theme.Disconnected)
	}

	line := "connection: " + model.connection.Target().String() + " (" + statusStyle.Render(statusLabel(status)) + ")"

	running, idle, completed := model.state.Counts()
	line += fmt.Sprintf("  tasks: %d running, %d idle, %d completed", running, idle, completed)

	warning := lipgloss.NewStyle().Bold(true).Foreground(model.theme.Warning)
	if model.state.Paused() {
		line += "  " + warning.Render("PAUSED")
	}
	if dropped := model.state.DroppedEvents(); dropped > 0 {
		line += "  " + warning.Render(fmt.Sprintf("dropped events: %d", dropped))
	}
	return lipgloss.NewStyle().MaxWidth(max(model.width, 1)).Render(line)
}

// statusLabel is the upper-case connection state shown in the status
// line. The backoff keeps its unit suffix in lower case.
func statusLabel(status conn.Status) string {
	switch {
	case status.Connected:
		return "CONNECTED"
	case status.Backoff == 0:
		return "CONNECTING"
	default:
		return "RECONNECTING IN " + status.Backoff.String()
	}
}

func (model Model) renderHelp() string {
	bindings := model.keys.tableHelp()
	if model.details != nil {
		bindings = model.keys.detailsHelp()
	}
	return model.help.ShortHelpView(bindings)
}

func (model Model) renderLogLine() string {
	if model.logLine == "" {
		return ""
	}
	color := model.theme.Warning
	if model.logLevel >= slog.LevelError {
		color = model.theme.Disconnected
	}
	return lipgloss.NewStyle().Foreground(color).MaxWidth(max(model.width, 1)).Render(model.logLine)
}

// padLines pads text with empty lines to exactly height lines, so the
// log line stays on the last row of the screen.
func padLines(text string, height int) string {
	if height == 0 {
		return ""
	}
	count := strings.Count(text, "\n") + 1
	if count >= height {
		return text
	}
	return text + strings.Repeat("\n", height-count)
}

// Target returns the connection's target, for window titles and
// messages outside the program.
func (model Model) Target() instrument.Target { return model.connection.Target() }
