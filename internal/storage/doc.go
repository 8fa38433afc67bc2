// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for salus TUI.
//
// Conversations are stored in a SQLite database (pure Go driver, no
// cgo), one row per conversation. The full turn tree, including edit
// versions and cached branches, is serialized as a JSON document; the
// listing columns (title, preview, turn count, timestamps) are kept
// denormalized so List never unmarshals documents.
//
// The store evicts the oldest conversations beyond MaxConversations on
// save. Autosave cadence is driven by the session manager.
package storage
