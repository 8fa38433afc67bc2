// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Bubble Tea message types for the chat view: reply
// completion, reveal ticks, voice events, save results, and errors.
package chat

import (
	"time"

	"github.com/jeranaias/salus-tui/internal/voice"
)

// =============================================================================
// REPLY MESSAGES
// =============================================================================

// replyKind identifies which controller operation produced a reply.
type replyKind int

const (
	replySend replyKind = iota
	replyEdit
	replySwitch
)

// ReplyMsg signals that a controller operation finished. The controller
// has already appended the outcome (reply or fallback notice) to the
// conversation; Err carries only pre-flight failures that appended
// nothing (empty input, busy, unknown turn).
type ReplyMsg struct {
	Kind replyKind
	Err  error
}

// =============================================================================
// REVEAL MESSAGES
// =============================================================================

// RevealTickMsg advances the typing reveal of a fresh assistant reply.
type RevealTickMsg struct {
	Time time.Time
}

// =============================================================================
// VOICE MESSAGES
// =============================================================================

// VoiceTranscriptMsg delivers a transcribed fragment for the composer.
type VoiceTranscriptMsg struct {
	Fragment string
}

// VoiceStateMsg reports a recording state transition.
type VoiceStateMsg struct {
	State voice.State
}

// VoiceNetworkErrorMsg signals the recognizer lost connectivity.
type VoiceNetworkErrorMsg struct{}

// =============================================================================
// SERVICE HEALTH MESSAGES
// =============================================================================

// HealthMsg reports the latest service health probe result.
type HealthMsg struct {
	Healthy bool
}

// healthRecheckMsg triggers the next scheduled health probe.
type healthRecheckMsg struct{}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// SaveResultMsg reports the outcome of a conversation save.
type SaveResultMsg struct {
	Err error
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays an error to the user.
type ErrorMsg struct {
	Title   string
	Message string
}

// ErrorDismissMsg clears the current error display.
type ErrorDismissMsg struct{}
