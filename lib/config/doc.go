// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads digestd configuration.
//
// Configuration comes from a single file named by the DIGESTD_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no automatic file search. A file ending in
// .json or .jsonc is read as JSON with comments and trailing commas
// allowed; anything else is YAML. Fields the file omits keep their
// [Default] values, and unknown fields are an error.
//
// Variable expansion is performed on path fields after loading:
// ${VAR} and ${VAR:-default} patterns are expanded from the
// environment. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- socket, scheduler, staging, digest, metrics, shutdown
//     and log settings
//   - [Default] -- returns a Config with every field set
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every invalid field at once
package config
