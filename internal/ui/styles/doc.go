// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for salus TUI.
//
// Every color is a lipgloss.AdaptiveColor so the palette adjusts to
// light and dark terminals automatically. Theme bundles the configured
// lipgloss styles for each surface the chat UI renders: message
// bubbles, the edit-version badge, the emergency banner, the composer,
// and the status bar. Status states additionally carry ASCII shape
// indicators so they stay readable without color.
package styles
