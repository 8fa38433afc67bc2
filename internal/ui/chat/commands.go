// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// healthInterval is how often the status bar indicator re-probes
	// the service.
	healthInterval = 30 * time.Second

	// serviceCallTimeout bounds the out-of-band service calls (health
	// probe, session clear) so they never hold the UI loop hostage.
	serviceCallTimeout = 5 * time.Second
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// sendCmd asks the controller to send a new user message. The call
// blocks until the reply (or fallback notice) has been appended.
func (m *Model) sendCmd(text string) tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		_, err := controller.Send(context.Background(), text)
		return ReplyMsg{Kind: replySend, Err: err}
	}
}

// editCmd asks the controller to regenerate from an edited user turn.
func (m *Model) editCmd(turnID, text string) tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		_, err := controller.EditMessage(context.Background(), turnID, text)
		return ReplyMsg{Kind: replyEdit, Err: err}
	}
}

// switchCmd asks the controller to activate another version of an
// edited turn. Cached versions replay without a network call.
func (m *Model) switchCmd(turnID string, targetIdx int) tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		_, err := controller.SwitchVersion(context.Background(), turnID, targetIdx)
		return ReplyMsg{Kind: replySwitch, Err: err}
	}
}

// saveCmd persists the conversation in the background.
func (m *Model) saveCmd() tea.Cmd {
	return func() tea.Msg {
		return SaveResultMsg{Err: m.saveConversation()}
	}
}

// healthCmd probes the service once and reports the result for the
// status bar indicator.
func (m *Model) healthCmd() tea.Cmd {
	svc := m.service
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		return HealthMsg{Healthy: svc.Health(ctx) == nil}
	}
}

// healthRecheckCmd schedules the next health probe.
func (m *Model) healthRecheckCmd() tea.Cmd {
	return tea.Tick(healthInterval, func(t time.Time) tea.Msg {
		return healthRecheckMsg{}
	})
}

// clearSessionCmd tells the service to drop its state for a finished
// session. Best effort: the local reset never waits on the outcome.
func (m *Model) clearSessionCmd(sessionID string) tea.Cmd {
	svc := m.service
	if svc == nil || sessionID == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceCallTimeout)
		defer cancel()
		_ = svc.ClearSession(ctx, sessionID)
		return nil
	}
}

// revealTickCmd drives the typing reveal animation.
func (m *Model) revealTickCmd() tea.Cmd {
	return tea.Tick(m.revealInterval, func(t time.Time) tea.Msg {
		return RevealTickMsg{Time: t}
	})
}

// waitVoiceEvent pumps one event from the voice adapter's callback
// channel into the Bubble Tea loop. Re-armed after each delivery.
func (m *Model) waitVoiceEvent() tea.Cmd {
	events := m.voiceEvents
	return func() tea.Msg {
		return <-events
	}
}
