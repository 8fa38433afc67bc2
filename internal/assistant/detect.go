// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant implements the Dr. Salus conversation engine.
package assistant

import "strings"

// emergencyMarker is the term the AI service embeds in replies that call
// for immediate veterinary care.
const emergencyMarker = "emergency"

// DetectEmergency reports whether assistant reply text contains the
// emergency marker, matched case-insensitively. Pure string scan; the
// sticky session flag is raised by the controller, not here.
func DetectEmergency(text string) bool {
	return strings.Contains(strings.ToLower(text), emergencyMarker)
}
