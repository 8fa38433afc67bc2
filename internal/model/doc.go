// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// # Key Types
//
//   - Conversation: ordered turn sequence, welcome turn first
//   - Turn: single exchange turn with edit versions and cached branches
//   - Role: turn role enumeration (user, assistant)
//
// A user turn accumulates edit versions in Versions; Content always mirrors
// the current version. BranchReplies and BranchTails cache, per version
// index, the assistant reply and the trailing turns that followed it, so
// revisiting a version restores its branch without re-contacting the
// service. At most one live reply exists per (turn, version) pair.
//
// # Usage
//
// Create a conversation and append turns:
//
//	conv := model.NewConversation(welcome)
//	conv.AppendTurn(model.NewUserTurn("Why is my dog scratching so much?"))
package model
