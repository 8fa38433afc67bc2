// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks per-session chat state.
//
// # Key Types
//
//   - Manager: session id, activity tracking, autosave scheduling, and the
//     sticky emergency flag
//   - TickMsg / AutoSaveMsg: Bubble Tea messages driving periodic checks
//
// The session id is opaque, generated once per session, and accompanies
// every chat request. The emergency flag is raised when an assistant reply
// trips the emergency detector and stays raised until the user dismisses
// it; replies never clear it.
//
// # Usage
//
//	mgr := session.NewManager(session.DefaultConfig())
//	mgr.RaiseEmergency()
//	if mgr.EmergencyActive() { ... }
//	mgr.DismissEmergency()
package session
