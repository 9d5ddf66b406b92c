// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Consolation is a terminal console for watching the tasks of a live,
// instrumented async process.
//
// It connects to the process's instrumentation service, subscribes to
// its update and state streams, and renders a sortable table of tasks
// with their lifetimes, busy and idle time, and poll counts. The
// connection is kept alive across restarts of the target: the status
// line shows CONNECTING or a RECONNECTING countdown until the service
// is back, and the table resumes where it left off.
//
// The target is a positional argument, defaulting to
// http://127.0.0.1:6669. Unix sockets are addressed as
// file:///path/to.sock or unix:///path/to.sock.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/hawkw/consolation/lib/clock"
	"github.com/hawkw/consolation/lib/config"
	"github.com/hawkw/consolation/lib/conn"
	"github.com/hawkw/consolation/lib/consoleui"
	"github.com/hawkw/consolation/lib/process"
	"github.com/hawkw/consolation/lib/taskview"
	"github.com/hawkw/consolation/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	cfg, showVersion, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.UsageError{Err: err}
	}
	if showVersion {
		version.Print(os.Stdout, "consolation")
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("consolation needs an interactive terminal")
	}
	lipgloss.SetColorProfile(colorProfile(cfg.Color, termenv.NewOutput(os.Stdout)))

	level, _ := cfg.LogLevel()
	tuiHandler := consoleui.NewTUILogHandler(slog.LevelWarn)
	handler := slog.Handler(tuiHandler)
	if cfg.Log.Output != "" {
		fileHandler, closeFile, err := openFileLogHandler(cfg.Log.Output, level)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", cfg.Log.Output, err)
		}
		defer closeFile()
		handler = consoleui.FanoutHandler{tuiHandler, fileHandler}
	}
	logger := slog.New(handler)

	connection := conn.New(cfg.ParsedTarget(), conn.Options{
		Clock:       clock.Real(),
		Logger:      logger,
		BaseBackoff: cfg.Backoff.Base,
		MaxBackoff:  cfg.Backoff.Max,
	})

	model := consoleui.NewModel(consoleui.Options{
		Connection: connection,
		Retain:     cfg.Retain,
		Theme:      taskview.DefaultTheme,
		Keys:       consoleui.DefaultKeyMap,
		ASCII:      cfg.ASCII,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	tuiHandler.SetProgram(program)

	final, err := program.Run()
	// The model closes the connection when the user quits; this covers
	// the program ending any other way.
	connection.Close()
	if err != nil {
		return err
	}
	if finalModel, ok := final.(consoleui.Model); ok && finalModel.Err() != nil {
		return fmt.Errorf("connecting to %s: %w", finalModel.Target(), finalModel.Err())
	}
	return nil
}

// parseArgs builds the configuration from defaults, the config file
// (--config or CONSOLATION_CONFIG), and flags, in increasing
// precedence. The result is validated.
func parseArgs(args []string, output io.Writer) (*config.Config, bool, error) {
	var (
		configPath  string
		retain      time.Duration
		color       string
		ascii       bool
		logOutput   string
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("consolation", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.StringVar(&configPath, "config", "", "configuration file (YAML, or JSONC for .json/.jsonc)")
	flagSet.DurationVar(&retain, "retain", 0, "how long completed tasks stay listed (default 6s)")
	flagSet.StringVar(&color, "color", "", "color output: auto, always, or never (default auto)")
	flagSet.BoolVar(&ascii, "ascii", false, "use ASCII state labels instead of symbols")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (in addition to the status bar)")
	flagSet.StringVar(&logLevel, "log-level", "", "minimum level for --log-output: debug, info, warn, error (default info)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(output, `Consolation watches the tasks of a live instrumented process.

Usage:
  consolation [TARGET] [flags]

TARGET defaults to http://127.0.0.1:6669. Unix sockets are addressed as
file:///path/to.sock.

Keys:
  left/right  select sort column     up/down  select task
  i           invert sort order      enter    task details
  space       pause/resume           q        quit

Flags:
`)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, false, err
	}
	if showVersion {
		return nil, true, nil
	}

	positional := flagSet.Args()
	if len(positional) > 1 {
		return nil, false, fmt.Errorf("unexpected argument: %s", positional[1])
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, false, err
	}

	if len(positional) == 1 {
		cfg.Target = positional[0]
	}
	if flagSet.Changed("retain") {
		cfg.Retain = retain
	}
	if flagSet.Changed("color") {
		cfg.Color = config.ColorMode(color)
	}
	if flagSet.Changed("ascii") {
		cfg.ASCII = ascii
	}
	if flagSet.Changed("log-output") {
		cfg.Log.Output = logOutput
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// colorProfile maps the color mode to a termenv profile. Auto honors
// NO_COLOR and CLICOLOR_FORCE as well as the terminal's capabilities.
func colorProfile(mode config.ColorMode, output *termenv.Output) termenv.Profile {
	switch mode {
	case config.ColorAlways:
		return termenv.TrueColor
	case config.ColorNever:
		return termenv.Ascii
	default:
		return output.EnvColorProfile()
	}
}

// openFileLogHandler creates a slog.JSONHandler that appends to the
// given file path. Returns the handler, a cleanup function to close
// the file, and any error.
func openFileLogHandler(path string, level slog.Level) (slog.Handler, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return handler, func() { file.Close() }, nil
}
