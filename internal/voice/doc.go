// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice adapts a speech-to-text capability to the chat composer.
//
// The Adapter runs a two-state machine, Idle and Recording, over a
// pluggable Recognizer backend. Speech APIs are host-specific and not
// portable, so the backend is an interface: any implementation that can
// emit transcript events plugs in, and a host without one gets an adapter
// whose Start fails fast with ErrUnsupported.
//
// Transcript fragments append to the pending composer text with exactly
// one separating space (AppendTranscript). A recognizer network error
// surfaces a "check your connection" notice; any other recognizer error
// silently returns the adapter to Idle.
package voice
