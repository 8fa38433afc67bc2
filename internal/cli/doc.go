// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface of salus: one-shot
// questions, the development stub server, saved conversation management,
// and version/help output. Running salus with no command starts the TUI.
package cli
