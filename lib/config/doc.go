// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the console's optional configuration file.
//
// The file is named either by the CONSOLATION_CONFIG environment
// variable (via [Load]) or a --config flag (via [LoadFile]). There is
// no search path and no ~/.config discovery: without one of those, the
// console runs on [Default] values plus command-line flags.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas; anything else is YAML. Both formats share one
// schema, and durations are written as Go duration strings ("500ms").
//
// Variable expansion is performed on path-like fields (the target and
// the log output file) after loading: ${HOME} and ${VAR:-default}
// patterns are expanded. No other environment variables override
// config values.
//
// Key exports:
//
//   - [Config] -- target, retain window, backoff, display and log settings
//   - [Default] -- the built-in values
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
