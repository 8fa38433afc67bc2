// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the salus-tui application.
//
// String helpers are UTF-8 safe: truncation counts runes or display columns
// (via go-runewidth), never bytes. AtomicWriteFile is the crash-safe write
// used for config and exported conversations.
package util
