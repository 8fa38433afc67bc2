// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages salus-tui configuration.
//
// Configuration lives in TOML at ~/.salus/config.toml and is layered as
// defaults, then file, then SALUS_* environment overrides. Saves are
// atomic (temp file + rename) so a crash mid-write never corrupts the
// file. A thread-safe Global() accessor holds the active configuration,
// and Watcher reloads it when the file changes on disk.
package config
