// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/salus-tui/internal/model"
	"github.com/jeranaias/salus-tui/internal/util"
	"github.com/jeranaias/salus-tui/internal/voice"
)

// =============================================================================
// LAYOUT
// =============================================================================

// renderChat assembles the full chat screen.
func (m *Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	sections := []string{m.renderHeader()}

	if m.controller.Session().EmergencyActive() {
		sections = append(sections, m.renderEmergencyBanner())
	}

	sections = append(sections, m.viewport.View())

	if m.state == StateError && m.lastError != nil {
		sections = append(sections, m.renderErrorBox())
	}

	sections = append(sections, m.renderInput(), m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// resizeViewport recomputes the message area height from the chrome
// around it. Must run after anything that changes chrome height (window
// resize, emergency banner, error box).
func (m *Model) resizeViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}

	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderStatusBar())

	if m.controller.Session().EmergencyActive() {
		chrome += lipgloss.Height(m.renderEmergencyBanner())
	}
	if m.state == StateError && m.lastError != nil {
		chrome += lipgloss.Height(m.renderErrorBox())
	}

	height := m.height - chrome
	if height < 3 {
		height = 3
	}

	m.viewport.Width = m.width
	m.viewport.Height = height
}

// updateViewport re-renders the message list into the viewport.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
}

// =============================================================================
// HEADER AND BANNERS
// =============================================================================

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Dr. Salus")
	subtitle := m.theme.HeaderSubtitle.Render("AI Pet Care Assistant")

	line := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", subtitle)
	return m.theme.Header.Width(m.width).Render(line)
}

func (m *Model) renderEmergencyBanner() string {
	title := m.theme.EmergencyTitle.Render("EMERGENCY GUIDANCE ACTIVE")
	body := m.theme.EmergencyBody.Render(
		"If your pet is in immediate danger, contact an emergency veterinary clinic now. Press Ctrl+X to dismiss this notice.")

	content := lipgloss.JoinVertical(lipgloss.Center, title, body)
	return m.theme.EmergencyBanner.Width(m.width - 2).Render(content)
}

func (m *Model) renderErrorBox() string {
	title := m.theme.ErrorTitle.Render(m.lastError.Title)
	msg := m.theme.ErrorMessage.Render(m.lastError.Message)
	hint := m.theme.SessionMeta.Render("Press Esc to dismiss.")

	content := lipgloss.JoinVertical(lipgloss.Left, title, msg, hint)
	return m.theme.ErrorBox.Width(m.width - 4).Render(content)
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// bubbleWidth is the wrap width for message bubbles.
func (m *Model) bubbleWidth() int {
	w := m.width - 12
	if w < 20 {
		w = 20
	}
	return w
}

// renderBubble wraps content to the bubble width when it is too wide;
// short messages keep their natural size.
func (m *Model) renderBubble(style lipgloss.Style, content string) string {
	if lipgloss.Width(content) > m.bubbleWidth() {
		return style.Width(m.bubbleWidth()).Render(content)
	}
	return style.Render(content)
}

func (m *Model) renderMessages() string {
	turns := m.snapshot.Turns
	if len(turns) == 0 && m.pendingText == "" {
		return m.theme.SessionMeta.Render("Ask Dr. Salus anything about your pet's health.")
	}

	rendered := make([]string, 0, len(turns)+1)
	for _, t := range turns {
		rendered = append(rendered, m.renderTurn(t))
	}
	if m.pendingText != "" {
		rendered = append(rendered, m.renderPendingTurn())
	}
	return strings.Join(rendered, "\n\n")
}

// renderPendingTurn shows a just-submitted message while the request is
// in flight. The controller's confirmed turn replaces it on reply.
func (m *Model) renderPendingTurn() string {
	label := m.theme.BubbleLabel.Render(model.RoleUser.DisplayName())
	stamp := m.theme.BubbleTime.Render(time.Now().Format("15:04"))

	bubble := m.renderBubble(m.theme.UserBubble, m.pendingText)
	block := lipgloss.JoinVertical(lipgloss.Right, label+" "+stamp, bubble)
	return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, block)
}

// renderTurn renders one turn as a labelled bubble. User turns sit on
// the right, assistant turns on the left.
func (m *Model) renderTurn(t *model.Turn) string {
	switch {
	case t.Role == model.RoleUser:
		return m.renderUserTurn(t)
	case t.Fallback:
		return m.renderNoticeTurn(t)
	default:
		return m.renderAssistantTurn(t)
	}
}

func (m *Model) renderUserTurn(t *model.Turn) string {
	label := m.theme.BubbleLabel.Render(t.Role.DisplayName())
	stamp := m.theme.BubbleTime.Render(t.CreatedAt.Format("15:04"))

	header := label + " " + stamp
	if t.VersionCount() > 1 {
		badge := m.theme.VersionBadge.Render(
			fmt.Sprintf("%d/%d", t.CurrentVersion+1, t.VersionCount()))
		edited := m.theme.EditedMarker.Render("(edited)")
		header = header + " " + badge + " " + edited
	}

	bubble := m.renderBubble(m.theme.UserBubble, t.Content)
	block := lipgloss.JoinVertical(lipgloss.Right, header, bubble)
	return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, block)
}

func (m *Model) renderAssistantTurn(t *model.Turn) string {
	label := m.theme.BubbleLabel.Render(t.Role.DisplayName())
	stamp := m.theme.BubbleTime.Render(t.CreatedAt.Format("15:04"))

	content := t.Content
	if t.ID == m.revealTurnID && m.state == StateRevealing {
		content = m.revealedContent(t)
	}

	bubble := m.renderBubble(m.theme.AssistantBubble, m.markdownRender(content))
	return lipgloss.JoinVertical(lipgloss.Left, label+" "+stamp, bubble)
}

// renderNoticeTurn renders the offline fallback reply distinctly so the
// user knows it did not come from the service.
func (m *Model) renderNoticeTurn(t *model.Turn) string {
	label := m.theme.BubbleLabel.Render(t.Role.DisplayName())
	marker := m.theme.OfflineIndicator.Render("offline")
	stamp := m.theme.BubbleTime.Render(t.CreatedAt.Format("15:04"))

	bubble := m.renderBubble(m.theme.NoticeBubble, t.Content)
	return lipgloss.JoinVertical(lipgloss.Left, label+" "+marker+" "+stamp, bubble)
}

// revealedContent returns the portion of a fresh reply uncovered so far.
func (m *Model) revealedContent(t *model.Turn) string {
	runes := []rune(t.Content)
	if m.revealed >= len(runes) {
		return t.Content
	}
	return string(runes[:m.revealed])
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m *Model) renderInput() string {
	var lines []string

	if m.editingTurnID != "" {
		lines = append(lines, m.theme.VersionArrow.Render("Editing previous message"))
	}
	lines = append(lines, m.input.View())

	used := util.RuneLen(m.input.Value())
	count := fmt.Sprintf("%d/%d", used, MaxInputRunes)
	switch {
	case used >= MaxInputRunes*95/100:
		count = m.theme.CharCountDanger.Render(count)
	case used >= MaxInputRunes*80/100:
		count = m.theme.CharCountWarning.Render(count)
	default:
		count = m.theme.CharCount.Render(count)
	}
	lines = append(lines, count)

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return m.theme.InputContainer.Width(m.width - 2).Render(content)
}

func (m *Model) renderStatusBar() string {
	var left string
	switch {
	case m.state == StateWaiting:
		left = m.spinner.View() + " " + m.theme.ThinkingText.Render("Dr. Salus is thinking...")
	case m.statusMsg != "":
		left = m.theme.ShortcutDesc.Render(m.statusMsg)
	default:
		parts := make([]string, 0, 5)
		for _, b := range m.keyMap.ShortHelp() {
			h := b.Help()
			parts = append(parts,
				m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
		left = strings.Join(parts, "  ")
	}

	var rightParts []string
	if m.voiceState == voice.Recording {
		rightParts = append(rightParts, m.theme.RecordingIndicator.Render("[REC] listening"))
	}
	if m.healthChecked {
		if m.serviceOnline {
			rightParts = append(rightParts, m.theme.ConnectedIndicator.Render("[online]"))
		} else {
			rightParts = append(rightParts, m.theme.OfflineIndicator.Render("[offline]"))
		}
	}
	right := strings.Join(rightParts, " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(
		left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m *Model) renderHelpOverlay() string {
	groups := m.keyMap.FullHelp()
	names := []string{"Navigation", "Messages", "Session", "Application"}

	var sections []string
	sections = append(sections, m.theme.HeaderTitle.Render("Keyboard Shortcuts"), "")

	for i, group := range groups {
		if i < len(names) {
			sections = append(sections, m.theme.ShortcutKey.Render(names[i]))
		}
		for _, b := range group {
			h := b.Help()
			sections = append(sections, fmt.Sprintf("  %-10s %s",
				m.theme.ShortcutKey.Render(h.Key), m.theme.ShortcutDesc.Render(h.Desc)))
		}
		sections = append(sections, "")
	}
	sections = append(sections, m.theme.SessionMeta.Render("Press any key to close."))

	box := m.theme.Container.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
