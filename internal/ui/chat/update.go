// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/salus-tui/internal/assistant"
	"github.com/jeranaias/salus-tui/internal/session"
	"github.com/jeranaias/salus-tui/internal/util"
	"github.com/jeranaias/salus-tui/internal/voice"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReplyMsg:
		return m.handleReply(msg)

	case RevealTickMsg:
		return m.handleRevealTick()

	case session.TickMsg:
		return m, m.controller.Session().HandleTick()

	case session.AutoSaveMsg:
		return m, m.saveCmd()

	case HealthMsg:
		m.serviceOnline = msg.Healthy
		m.healthChecked = true
		return m, m.healthRecheckCmd()

	case healthRecheckMsg:
		return m, m.healthCmd()

	case SaveResultMsg:
		if msg.Err != nil {
			m.statusMsg = "Save failed: " + msg.Err.Error()
		}
		return m, nil

	case VoiceTranscriptMsg:
		m.input.SetValue(voice.AppendTranscript(m.input.Value(), msg.Fragment))
		m.input.CursorEnd()
		return m, m.waitVoiceEvent()

	case VoiceStateMsg:
		m.voiceState = msg.State
		return m, m.waitVoiceEvent()

	case VoiceNetworkErrorMsg:
		m.statusMsg = "Voice input failed. Please check your connection."
		return m, m.waitVoiceEvent()

	case ErrorMsg:
		m.lastError = &msg
		m.state = StateError
		return m, nil

	case ErrorDismissMsg:
		m.lastError = nil
		m.state = StateReady
		m.input.Focus()
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.state == StateWaiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	default:
		// Unhandled messages still reach the text input (blink, paste)
		// and the viewport (mouse wheel).
		var cmds []tea.Cmd
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		cmds = append(cmds, inputCmd)

		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)

		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.input.Width = msg.Width - 6
	m.rebuildMarkdown()
	m.resizeViewport()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	// Quit always works, saving on the way out.
	if keyStr == "ctrl+q" || keyStr == "ctrl+c" {
		m.saveConversation()
		return m, tea.Quit
	}

	// Any key dismisses the help overlay.
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	m.controller.Session().RecordActivity()

	switch keyStr {
	case "f1":
		m.showHelp = true
		return m, nil

	case "esc":
		if m.state == StateError {
			m.lastError = nil
			m.state = StateReady
			return m, nil
		}
		if m.editingTurnID != "" {
			m.editingTurnID = ""
			m.input.SetValue("")
			m.statusMsg = ""
		}
		return m, nil

	case "enter":
		return m.handleSubmit()

	case "ctrl+e":
		return m.handleEditLast()

	case "ctrl+left":
		return m.handleVersionSwitch(-1)

	case "ctrl+right":
		return m.handleVersionSwitch(+1)

	case "ctrl+v":
		return m.handleVoiceToggle()

	case "ctrl+x":
		if m.controller.Session().EmergencyActive() {
			m.controller.Session().DismissEmergency()
			m.resizeViewport()
			m.updateViewport()
		}
		return m, nil

	case "ctrl+n":
		return m.handleNewConversation()

	case "ctrl+s":
		m.statusMsg = "Saving..."
		return m, m.saveCmd()

	case "up":
		m.viewport.LineUp(1)
		return m, nil
	case "down":
		m.viewport.LineDown(1)
		return m, nil
	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	// Everything else is composer input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit sends the composer content, as a new message or as an
// edit of an earlier turn.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.Busy() {
		m.statusMsg = "Dr. Salus is still replying..."
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	var cmd tea.Cmd
	if m.editingTurnID != "" {
		cmd = m.editCmd(m.editingTurnID, text)
		m.editingTurnID = ""
	} else {
		cmd = m.sendCmd(text)
		// Render the outgoing message right away; the confirmed turn
		// from the controller replaces it when the reply lands.
		m.pendingText = text
	}

	m.state = StateWaiting
	m.statusMsg = ""
	m.input.SetValue("")
	m.nextPlaceholder()

	m.updateViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// handleEditLast loads the latest user turn into the composer.
func (m Model) handleEditLast() (tea.Model, tea.Cmd) {
	if m.Busy() {
		return m, nil
	}
	turn := m.lastUserTurn()
	if turn == nil {
		m.statusMsg = "Nothing to edit yet."
		return m, nil
	}

	m.editingTurnID = turn.ID
	m.input.SetValue(turn.Content)
	m.input.CursorEnd()
	m.statusMsg = "Editing your message. Enter resends, Esc cancels."
	return m, nil
}

// handleVersionSwitch activates the previous or next edit version of
// the latest user turn.
func (m Model) handleVersionSwitch(delta int) (tea.Model, tea.Cmd) {
	if m.Busy() {
		return m, nil
	}
	turn := m.lastUserTurn()
	if turn == nil || turn.VersionCount() < 2 {
		return m, nil
	}

	target := turn.CurrentVersion + delta
	if !turn.HasVersion(target) {
		return m, nil
	}

	m.state = StateWaiting
	m.statusMsg = ""
	return m, tea.Batch(m.switchCmd(turn.ID, target), m.spinner.Tick)
}

// handleVoiceToggle starts or stops voice capture.
func (m Model) handleVoiceToggle() (tea.Model, tea.Cmd) {
	if m.voiceAdapter == nil || !m.voiceAdapter.Supported() {
		m.lastError = &ErrorMsg{
			Title:   "Voice Input Unavailable",
			Message: "Speech recognition is not supported on this system.",
		}
		m.state = StateError
		return m, nil
	}

	if err := m.voiceAdapter.Toggle(); err != nil {
		m.statusMsg = "Voice input failed: " + err.Error()
		return m, nil
	}
	m.voiceState = m.voiceAdapter.State()
	return m, nil
}

// handleNewConversation saves the current chat and starts a fresh one.
// The service is asked to drop the old session's state; that call is
// best effort and runs in the background.
func (m Model) handleNewConversation() (tea.Model, tea.Cmd) {
	oldSession := m.controller.Session().SessionID()
	if err := m.controller.NewConversation(); err != nil {
		m.statusMsg = "Please wait for the current reply to finish."
		return m, nil
	}

	m.refreshSnapshot()
	m.editingTurnID = ""
	m.revealTurnID = ""
	m.revealed = 0
	m.pendingText = ""
	m.state = StateReady
	m.statusMsg = "Started a new conversation."
	m.input.SetValue("")
	m.resizeViewport()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, m.clearSessionCmd(oldSession)
}

// handleReply processes completion of a send, edit, or version switch.
func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	m.refreshSnapshot()
	m.pendingText = ""
	m.state = StateReady

	if msg.Err != nil {
		switch {
		case errors.Is(msg.Err, assistant.ErrBusy):
			m.statusMsg = "Dr. Salus is still replying..."
		case errors.Is(msg.Err, assistant.ErrEmptyMessage):
			// Ignore; the composer guard already prevents this.
		default:
			m.lastError = &ErrorMsg{Title: "Something went wrong", Message: msg.Err.Error()}
			m.state = StateError
		}
		m.updateViewport()
		return m, nil
	}

	var cmds []tea.Cmd

	// A fresh reply types itself out; replayed branches appear at once.
	if last := m.snapshot.LastTurn(); last != nil && last.Fresh {
		m.state = StateRevealing
		m.revealTurnID = last.ID
		m.revealed = 0
		cmds = append(cmds, m.revealTickCmd())
	}

	m.resizeViewport()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(cmds...)
}

// handleRevealTick advances the typing animation for a fresh reply.
func (m Model) handleRevealTick() (tea.Model, tea.Cmd) {
	if m.state != StateRevealing {
		return m, nil
	}

	target := m.revealTarget()
	if target == nil {
		m.state = StateReady
		m.revealTurnID = ""
		return m, nil
	}

	m.revealed += revealChunk
	if m.revealed >= util.RuneLen(target.Content) {
		m.controller.AcknowledgeTypingComplete(m.revealTurnID)
		m.refreshSnapshot()
		m.state = StateReady
		m.revealTurnID = ""
		m.revealed = 0
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, nil
	}

	m.updateViewport()
	m.viewport.GotoBottom()
	return m, m.revealTickCmd()
}
