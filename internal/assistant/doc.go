// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant implements the Dr. Salus conversation engine.
//
// The Controller owns the conversation and exposes four operations:
//
//   - Send: append a user turn, request a reply
//   - EditMessage: fork history from a past user turn, preserving the
//     discarded branch for restoration
//   - SwitchVersion: navigate between edit versions, replaying cached
//     branches without re-contacting the service
//   - AcknowledgeTypingComplete: clear the one-time reveal flag
//
// Edits are non-destructive. Before a truncate, the branch hanging off the
// edited turn is captured under its current version index; switching back
// splices it in verbatim. At most one live assistant reply exists per
// (turn, version) pair, so toggling between explored edits replays
// deterministically.
//
// Transport failures never propagate: they become a fixed fallback turn in
// the conversation, which is never cached and never scanned for
// emergencies. The emergency flag itself lives on the session and stays
// raised until the user dismisses it.
package assistant
