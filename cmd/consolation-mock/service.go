// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hawkw/consolation/lib/clock"
	"github.com/hawkw/consolation/lib/codec"
	"github.com/hawkw/consolation/lib/instrument"
)

// subscriberBuffer is the number of frames queued for a stream client.
// A client further behind than this is disconnected; it reconnects and
// receives a fresh snapshot.
const subscriberBuffer = 16

type serviceOptions struct {
	Clock           clock.Clock
	Logger          *slog.Logger
	PublishInterval time.Duration
	SpawnRate       float64
	Seed            uint64
	MaxTasks        int
}

// mockService serves the instrumentation actions over a synthetic
// workload.
type mockService struct {
	clock           clock.Clock
	logger          *slog.Logger
	publishInterval time.Duration
	spawnRate       float64

	mu          sync.Mutex
	workload    *workload
	paused      bool
	lastStep    time.Time
	updateSubs  map[*subscriber[instrument.Update]]struct{}
	stateSubs   map[*subscriber[instrument.State]]struct{}
	detailsSubs map[*subscriber[instrument.TaskDetails]]uint64
}

// subscriber is one stream client. The publisher closes lagged when
// frames would overflow.
type subscriber[T any] struct {
	frames chan T
	lagged chan struct{}
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{
		frames: make(chan T, subscriberBuffer),
		lagged: make(chan struct{}),
	}
}

// offer queues a frame without blocking. It reports false, and marks
// the subscriber lagged, when the queue is full.
func (s *subscriber[T]) offer(frame T) bool {
	select {
	case s.frames <- frame:
		return true
	default:
		close(s.lagged)
		return false
	}
}

func newMockService(options serviceOptions) *mockService {
	return &mockService{
		clock:           options.Clock,
		logger:          options.Logger,
		publishInterval: options.PublishInterval,
		spawnRate:       options.SpawnRate,
		workload:        newWorkload(options.Seed, options.MaxTasks),
		lastStep:        options.Clock.Now(),
		updateSubs:      make(map[*subscriber[instrument.Update]]struct{}),
		stateSubs:       make(map[*subscriber[instrument.State]]struct{}),
		detailsSubs:     make(map[*subscriber[instrument.TaskDetails]]uint64),
	}
}

// register installs the mock's handlers on server.
func (m *mockService) register(server *instrument.Server) {
	server.HandleStream(instrument.ActionWatchUpdates, m.handleWatchUpdates)
	server.HandleStream(instrument.ActionWatchState, m.handleWatchState)
	server.HandleStream(instrument.ActionWatchTaskDetails, m.handleWatchTaskDetails)
	server.Handle(instrument.ActionPause, m.handlePause)
	server.Handle(instrument.ActionResume, m.handleResume)
}

// run advances the workload and publishes frames every publish
// interval until ctx is done.
func (m *mockService) run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.publishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick performs one simulation step. While paused the workload keeps
// running and its changes accumulate; the first update after resume
// carries all of them.
func (m *mockService) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.workload.step(now, now.Sub(m.lastStep), m.spawnRate)
	m.lastStep = now

	if !m.paused {
		update := m.workload.takeUpdate(now)
		for sub := range m.updateSubs {
			if !sub.offer(update) {
				delete(m.updateSubs, sub)
				m.logger.Warn("disconnecting lagging update subscriber")
			}
		}
	}

	for sub, id := range m.detailsSubs {
		details, ok := m.workload.details(id, now)
		if !ok {
			// The task is gone; ending the stream tells the client.
			close(sub.frames)
			delete(m.detailsSubs, sub)
			continue
		}
		if !sub.offer(details) {
			delete(m.detailsSubs, sub)
		}
	}
}

func (m *mockService) handleWatchUpdates(ctx context.Context, _ []byte, stream *instrument.ServerStream) error {
	sub := newSubscriber[instrument.Update]()

	m.mu.Lock()
	// The snapshot and registration happen under one lock so no change
	// falls between them.
	snapshot := m.workload.snapshot(m.clock.Now())
	m.updateSubs[sub] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.updateSubs, sub)
		m.mu.Unlock()
	}()

	m.logger.Debug("update subscriber connected", "tasks", len(snapshot.Tasks.NewTasks))
	if err := stream.Send(snapshot); err != nil {
		return err
	}
	return pumpFrames(ctx, sub, stream)
}

func (m *mockService) handleWatchState(ctx context.Context, _ []byte, stream *instrument.ServerStream) error {
	sub := newSubscriber[instrument.State]()

	m.mu.Lock()
	current := m.stateLocked()
	m.stateSubs[sub] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.stateSubs, sub)
		m.mu.Unlock()
	}()

	if err := stream.Send(current); err != nil {
		return err
	}
	return pumpFrames(ctx, sub, stream)
}

func (m *mockService) handleWatchTaskDetails(ctx context.Context, raw []byte, stream *instrument.ServerStream) error {
	var request instrument.TaskDetailsRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	sub := newSubscriber[instrument.TaskDetails]()

	m.mu.Lock()
	details, ok := m.workload.details(request.ID, m.clock.Now())
	if ok {
		m.detailsSubs[sub] = request.ID
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no task with id %d", request.ID)
	}
	defer func() {
		m.mu.Lock()
		delete(m.detailsSubs, sub)
		m.mu.Unlock()
	}()

	if err := stream.Send(details); err != nil {
		return err
	}
	return pumpFrames(ctx, sub, stream)
}

// pumpFrames sends queued frames until the client leaves, the
// subscriber lags, or the publisher closes the queue.
func pumpFrames[T any](ctx context.Context, sub *subscriber[T], stream *instrument.ServerStream) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.lagged:
			return nil
		case frame, ok := <-sub.frames:
			if !ok {
				return nil
			}
			if err := stream.Send(frame); err != nil {
				return err
			}
		}
	}
}

func (m *mockService) handlePause(context.Context, []byte) (any, error) {
	m.setPaused(true)
	return nil, nil
}

func (m *mockService) handleResume(context.Context, []byte) (any, error) {
	m.setPaused(false)
	return nil, nil
}

// setPaused changes the temporality and tells state subscribers. A
// request that does not change it is acknowledged silently.
func (m *mockService) setPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused == paused {
		return
	}
	m.paused = paused
	state := m.stateLocked()
	m.logger.Info("temporality changed", "temporality", state.Temporality)
	for sub := range m.stateSubs {
		if !sub.offer(state) {
			delete(m.stateSubs, sub)
		}
	}
}

func (m *mockService) stateLocked() instrument.State {
	if m.paused {
		return instrument.State{Temporality: instrument.Paused}
	}
	return instrument.State{Temporality: instrument.Live}
}
