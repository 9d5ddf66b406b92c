// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Consolation-mock is a synthetic instrumented process for demos and
// manual testing of the console. It serves the instrumentation
// protocol over TCP or a Unix socket and simulates a workload: tasks
// are spawned at a configurable rate, polled, woken, and completed.
//
// The binary exposes five actions:
//   - watch-updates (streaming): a snapshot of every task, then one
//     update per publish interval while live
//   - watch-state (streaming): the temporality on subscribe and on change
//   - watch-task-details (streaming): poll-time histogram of one task
//   - pause: stop publishing updates; changes accumulate
//   - resume: publish again, starting with everything accumulated
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/hawkw/consolation/lib/clock"
	"github.com/hawkw/consolation/lib/instrument"
	"github.com/hawkw/consolation/lib/process"
	"github.com/hawkw/consolation/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		listen          string
		publishInterval time.Duration
		spawnRate       float64
		seed            uint64
		maxTasks        int
		logLevel        string
		showVersion     bool
	)

	flagSet := pflag.NewFlagSet("consolation-mock", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", instrument.DefaultTarget, "target to serve on (http://host:port or file:///path/to.sock)")
	flagSet.DurationVar(&publishInterval, "publish-interval", time.Second, "interval between updates")
	flagSet.Float64Var(&spawnRate, "spawn-rate", 2, "tasks spawned per second")
	flagSet.Uint64Var(&seed, "seed", 0, "workload random seed (0 picks one from the clock)")
	flagSet.IntVar(&maxTasks, "max-tasks", 200, "maximum number of tasks alive at once")
	flagSet.StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.UsageError{Err: err}
	}

	if showVersion {
		version.Print(os.Stdout, "consolation-mock")
		return nil
	}

	if args := flagSet.Args(); len(args) > 0 {
		return &process.UsageError{Err: fmt.Errorf("unexpected argument: %s", args[0])}
	}
	if publishInterval <= 0 {
		return &process.UsageError{Err: fmt.Errorf("--publish-interval must be positive, got %s", publishInterval)}
	}
	if spawnRate < 0 {
		return &process.UsageError{Err: fmt.Errorf("--spawn-rate must not be negative, got %v", spawnRate)}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return &process.UsageError{Err: fmt.Errorf("--log-level: %w", err)}
	}
	logger := newLogger(level)

	target, err := instrument.ParseTarget(listen)
	if err != nil {
		return &process.UsageError{Err: err}
	}

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := instrument.Listen(target)
	if err != nil {
		return err
	}

	mock := newMockService(serviceOptions{
		Clock:           clock.Real(),
		Logger:          logger,
		PublishInterval: publishInterval,
		SpawnRate:       spawnRate,
		Seed:            seed,
		MaxTasks:        maxTasks,
	})
	server := instrument.NewServer("consolation-mock", logger)
	mock.register(server)

	go mock.run(ctx)

	logger.Info("mock service running",
		"target", target.String(),
		"publish_interval", publishInterval,
		"spawn_rate", spawnRate,
		"seed", seed,
	)

	if err := server.Serve(ctx, listener); err != nil {
		return fmt.Errorf("serving %s: %w", target, err)
	}
	logger.Info("shutting down")
	return nil
}

// newLogger writes text to a terminal and JSON otherwise.
func newLogger(level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}
