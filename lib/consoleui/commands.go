// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hawkw/consolation/lib/conn"
	"github.com/hawkw/consolation/lib/instrument"
)

// Connection is the part of the connection manager the console uses.
// [*conn.Connection] implements it.
type Connection interface {
	NextMessage(ctx context.Context) (conn.Message, error)
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	WatchDetails(ctx context.Context, id uint64) (*instrument.Stream[instrument.TaskDetails], error)
	Status() conn.Status
	Target() instrument.Target
	Close() error
}

// redrawInterval keeps elapsed times and the reconnect status current
// when no frames arrive.
const redrawInterval = time.Second

type connMessageMsg struct {
	message conn.Message
}

// connErrorMsg reports that NextMessage gave up: the target is
// misconfigured or the connection was closed.
type connErrorMsg struct {
	err error
}

type redrawMsg struct{}

type detailsOpenedMsg struct {
	session *detailsSession
	stream  *instrument.Stream[instrument.TaskDetails]
}

type detailsFrameMsg struct {
	session *detailsSession
	details instrument.TaskDetails
}

type detailsErrorMsg struct {
	session *detailsSession
	err     error
}

type detailsEndedMsg struct {
	session *detailsSession
}

func waitForMessage(ctx context.Context, connection Connection) tea.Cmd {
	return func() tea.Msg {
		message, err := connection.NextMessage(ctx)
		if err != nil {
			return connErrorMsg{err: err}
		}
		return connMessageMsg{message: message}
	}
}

func scheduleRedraw() tea.Cmd {
	return tea.Tick(redrawInterval, func(time.Time) tea.Msg {
		return redrawMsg{}
	})
}

func sendPause(ctx context.Context, connection Connection) tea.Cmd {
	return func() tea.Msg {
		connection.Pause(ctx)
		return nil
	}
}

func sendResume(ctx context.Context, connection Connection) tea.Cmd {
	return func() tea.Msg {
		connection.Resume(ctx)
		return nil
	}
}

func openDetails(ctx context.Context, connection Connection, session *detailsSession) tea.Cmd {
	return func() tea.Msg {
		stream, err := connection.WatchDetails(ctx, session.id)
		if err != nil {
			return detailsErrorMsg{session: session, err: err}
		}
		return detailsOpenedMsg{session: session, stream: stream}
	}
}

func receiveDetails(session *detailsSession, stream *instrument.Stream[instrument.TaskDetails]) tea.Cmd {
	return func() tea.Msg {
		details, err := stream.Recv()
		switch {
		case errors.Is(err, io.EOF):
			return detailsEndedMsg{session: session}
		case err != nil:
			return detailsErrorMsg{session: session, err: err}
		}
		return detailsFrameMsg{session: session, details: details}
	}
}
