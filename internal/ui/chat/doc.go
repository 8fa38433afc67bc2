// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation view of the terminal UI.
//
// The view is a single Bubble Tea model around three bubbles
// components: a viewport holding the rendered turn history, a text
// input composer that keeps focus at all times, and a spinner shown
// while a request is in flight.
//
// The model never mutates conversation state directly. Every send,
// edit, and version switch goes through the assistant controller as a
// command, and the view re-renders from an immutable snapshot after
// each ReplyMsg. Fresh assistant replies are revealed a few runes per
// tick before the controller is told typing completed; replayed
// branches appear immediately.
//
// Voice events arrive on adapter callbacks from outside the Bubble Tea
// loop; they are pumped through a buffered channel and a self-re-arming
// wait command so they surface as ordinary messages.
package chat
