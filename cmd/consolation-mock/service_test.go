// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hawkw/consolation/lib/clock"
	"github.com/hawkw/consolation/lib/instrument"
	"github.com/hawkw/consolation/lib/testutil"
)

func startMock(t *testing.T, spawnRate float64) (*mockService, *clock.FakeClock, *instrument.Client) {
	t.Helper()
	fakeClock := clock.Fake(epoch)
	logger := slog.New(slog.DiscardHandler)
	mock := newMockService(serviceOptions{
		Clock:           fakeClock,
		Logger:          logger,
		PublishInterval: time.Second,
		SpawnRate:       spawnRate,
		Seed:            11,
		MaxTasks:        50,
	})
	server := instrument.NewServer("consolation-mock", logger)
	mock.register(server)

	target := instrument.UnixTarget(testutil.SocketPath(t, "mock.sock"))
	listener, err := instrument.Listen(target)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "server shutdown")
	})

	client, err := instrument.Connect(context.Background(), target)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return mock, fakeClock, client
}

// advance moves the fake clock one publish interval and runs a tick.
func advance(mock *mockService, fakeClock *clock.FakeClock) {
	fakeClock.Advance(time.Second)
	mock.tick()
}

type received[T any] struct {
	frame T
	err   error
}

func recv[T any](t *testing.T, stream *instrument.Stream[T]) (T, error) {
	t.Helper()
	result := make(chan received[T], 1)
	go func() {
		frame, err := stream.Recv()
		result <- received[T]{frame, err}
	}()
	got := testutil.RequireReceive(t, result, 5*time.Second, "stream frame")
	return got.frame, got.err
}

func openStream[T any](t *testing.T, client *instrument.Client, action string, fields map[string]any) *instrument.Stream[T] {
	t.Helper()
	stream, err := instrument.OpenStream[T](context.Background(), client, action, fields)
	if err != nil {
		t.Fatalf("OpenStream(%s): %v", action, err)
	}
	t.Cleanup(func() { stream.Close() })
	return stream
}

func TestWatchUpdatesSnapshotThenChanges(t *testing.T) {
	mock, fakeClock, client := startMock(t, 2)
	advance(mock, fakeClock)
	advance(mock, fakeClock)

	updates := openStream[instrument.Update](t, client, instrument.ActionWatchUpdates, nil)
	snapshot, err := recv(t, updates)
	if err != nil {
		t.Fatalf("Recv snapshot: %v", err)
	}
	if len(snapshot.Tasks.NewTasks) != 4 {
		t.Errorf("snapshot announces %d tasks, want 4", len(snapshot.Tasks.NewTasks))
	}

	advance(mock, fakeClock)
	update, err := recv(t, updates)
	if err != nil {
		t.Fatalf("Recv update: %v", err)
	}
	if len(update.Tasks.NewTasks) != 2 {
		t.Errorf("update announces %d tasks, want the 2 spawned since", len(update.Tasks.NewTasks))
	}
	if !update.Now.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("update.Now = %v", update.Now)
	}
}

func TestPauseHoldsUpdatesUntilResume(t *testing.T) {
	mock, fakeClock, client := startMock(t, 1)

	states := openStream[instrument.State](t, client, instrument.ActionWatchState, nil)
	if state, err := recv(t, states); err != nil || state.Temporality != instrument.Live {
		t.Fatalf("initial state = %+v, %v", state, err)
	}
	updates := openStream[instrument.Update](t, client, instrument.ActionWatchUpdates, nil)
	if _, err := recv(t, updates); err != nil {
		t.Fatalf("Recv snapshot: %v", err)
	}

	ctx := context.Background()
	if err := client.Call(ctx, instrument.ActionPause, nil, nil); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if state, err := recv(t, states); err != nil || state.Temporality != instrument.Paused {
		t.Fatalf("state after pause = %+v, %v", state, err)
	}
	// A repeated pause is acknowledged without a state frame.
	if err := client.Call(ctx, instrument.ActionPause, nil, nil); err != nil {
		t.Fatalf("second pause: %v", err)
	}

	advance(mock, fakeClock)
	advance(mock, fakeClock)
	advance(mock, fakeClock)

	if err := client.Call(ctx, instrument.ActionResume, nil, nil); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if state, err := recv(t, states); err != nil || state.Temporality != instrument.Live {
		t.Fatalf("state after resume = %+v, %v", state, err)
	}

	advance(mock, fakeClock)
	update, err := recv(t, updates)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if len(update.Tasks.NewTasks) != 4 {
		t.Errorf("first update after resume announces %d tasks, want all 4 spawned since the pause", len(update.Tasks.NewTasks))
	}
}

func TestWatchTaskDetails(t *testing.T) {
	mock, fakeClock, client := startMock(t, 1)
	advance(mock, fakeClock)

	_, err := instrument.OpenStream[instrument.TaskDetails](context.Background(), client,
		instrument.ActionWatchTaskDetails, map[string]any{"id": uint64(99)})
	var serviceError *instrument.ServiceError
	if !errors.As(err, &serviceError) {
		t.Fatalf("details of an unknown task: err = %v, want a ServiceError", err)
	}

	details := openStream[instrument.TaskDetails](t, client, instrument.ActionWatchTaskDetails, map[string]any{"id": uint64(1)})
	frame, err := recv(t, details)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.TaskID != 1 {
		t.Errorf("TaskID = %d, want 1", frame.TaskID)
	}

	advance(mock, fakeClock)
	if frame, err = recv(t, details); err != nil || frame.TaskID != 1 {
		t.Fatalf("second frame = %+v, %v", frame, err)
	}

	// The stream ends once the task is forgotten.
	mock.mu.Lock()
	delete(mock.workload.tasks, 1)
	mock.mu.Unlock()
	advance(mock, fakeClock)
	if _, err := recv(t, details); !errors.Is(err, io.EOF) {
		t.Errorf("Recv after the task was forgotten: err = %v, want io.EOF", err)
	}
}

func TestLaggingSubscriberIsDisconnected(t *testing.T) {
	sub := newSubscriber[instrument.State]()
	for range subscriberBuffer {
		if !sub.offer(instrument.State{}) {
			t.Fatal("offer failed before the buffer was full")
		}
	}
	if sub.offer(instrument.State{}) {
		t.Fatal("offer succeeded on a full buffer")
	}
	testutil.RequireClosed(t, sub.lagged, time.Second, "lagged signal")
}
