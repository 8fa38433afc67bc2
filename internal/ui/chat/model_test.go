// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/salus-tui/internal/assistant"
	"github.com/jeranaias/salus-tui/internal/config"
	"github.com/jeranaias/salus-tui/internal/salus"
	"github.com/jeranaias/salus-tui/internal/session"
	"github.com/jeranaias/salus-tui/internal/ui/styles"
	"github.com/jeranaias/salus-tui/internal/voice"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeTransport returns queued replies in order and counts calls.
type fakeTransport struct {
	mu      sync.Mutex
	calls   int
	replies []string
	err     error
}

func (f *fakeTransport) Chat(ctx context.Context, req salus.ChatRequest) (*salus.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	reply := "ok"
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &salus.ChatReply{Response: reply, SessionID: req.SessionID}, nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeService records health and session-clear calls.
type fakeService struct {
	mu      sync.Mutex
	healthy bool
	cleared []string
}

func (f *fakeService) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthy {
		return nil
	}
	return salus.ErrUnavailable
}

func (f *fakeService) ClearSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func (f *fakeService) setHealthy(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = v
}

func (f *fakeService) clearedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleared...)
}

func newTestModel(t *testing.T, ft assistant.Transport) (Model, *assistant.Controller) {
	t.Helper()
	return newTestModelWithService(t, ft, nil)
}

func newTestModelWithService(t *testing.T, ft assistant.Transport, svc Service) (Model, *assistant.Controller) {
	t.Helper()
	controller := assistant.NewController(ft, session.NewManager(session.DefaultConfig()))

	cfg := config.Default()
	cfg.UI.Markdown = false // keep rendered output comparable to raw text
	cfg.UI.TypingIntervalMs = 1

	m := New(styles.NewTheme(), controller, nil, voice.NewUnsupported(), svc, cfg)
	m = resize(t, m, 100, 40)
	return m, controller
}

func resize(t *testing.T, m Model, w, h int) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return next.(Model)
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func pressKey(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

// runCmds executes a command tree and returns the first ReplyMsg it
// produced. Timer-based commands in the tree are skipped.
func runCmds(t *testing.T, cmd tea.Cmd) (ReplyMsg, bool) {
	t.Helper()
	if cmd == nil {
		return ReplyMsg{}, false
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, sub := range msg {
			if reply, ok := runCmds(t, sub); ok {
				return reply, true
			}
		}
	case ReplyMsg:
		return msg, true
	}
	return ReplyMsg{}, false
}

// finishReveal drives the typing animation to completion.
func finishReveal(t *testing.T, m Model) Model {
	t.Helper()
	for i := 0; i < 10000 && m.GetState() == StateRevealing; i++ {
		next, _ := m.Update(RevealTickMsg{})
		m = next.(Model)
	}
	require.Equal(t, StateReady, m.GetState(), "reveal should terminate")
	return m
}

// =============================================================================
// SEND FLOW
// =============================================================================

func TestSubmit_SendsAndReveals(t *testing.T) {
	ft := &fakeTransport{replies: []string{"Try an oatmeal shampoo for the itching."}}
	m, controller := newTestModel(t, ft)

	m = typeText(t, m, "My dog keeps scratching")
	m, cmd := pressKey(t, m, tea.KeyEnter)
	assert.Equal(t, StateWaiting, m.GetState())
	assert.Equal(t, "", m.InputValue(), "composer clears on send")

	reply, ok := runCmds(t, cmd)
	require.True(t, ok, "submit should produce a reply message")
	require.NoError(t, reply.Err)

	next, _ := m.Update(reply)
	m = next.(Model)
	assert.Equal(t, StateRevealing, m.GetState(), "fresh reply types out")
	assert.Equal(t, 3, m.Conversation().TurnCount())

	m = finishReveal(t, m)
	last := controller.Conversation().LastTurn()
	require.NotNil(t, last)
	assert.False(t, last.Fresh, "reveal completion acknowledges typing")
	assert.Contains(t, m.View(), "oatmeal shampoo")
}

// TestSubmit_ShowsOutgoingBeforeReply: the typed message must be visible
// while the request is in flight, not only after the reply lands.
func TestSubmit_ShowsOutgoingBeforeReply(t *testing.T) {
	ft := &fakeTransport{replies: []string{"an answer"}}
	m, _ := newTestModel(t, ft)

	m = typeText(t, m, "My dog keeps scratching")
	m, cmd := pressKey(t, m, tea.KeyEnter)

	assert.Equal(t, StateWaiting, m.GetState())
	assert.Contains(t, m.View(), "My dog keeps scratching",
		"outgoing message renders while waiting")

	reply, ok := runCmds(t, cmd)
	require.True(t, ok)
	require.NoError(t, reply.Err)
	next, _ := m.Update(reply)
	m = next.(Model)
	assert.Contains(t, m.View(), "My dog keeps scratching",
		"confirmed turn replaces the pending one")
}

func TestSubmit_EmptyInputIgnored(t *testing.T) {
	ft := &fakeTransport{}
	m, _ := newTestModel(t, ft)

	m = typeText(t, m, "   ")
	m, cmd := pressKey(t, m, tea.KeyEnter)

	assert.Equal(t, StateReady, m.GetState())
	assert.Equal(t, 0, ft.callCount())
	_, ok := runCmds(t, cmd)
	assert.False(t, ok)
}

func TestSubmit_BlockedWhileWaiting(t *testing.T) {
	ft := &fakeTransport{}
	m, _ := newTestModel(t, ft)
	m.state = StateWaiting

	m = typeText(t, m, "second question")
	m, cmd := pressKey(t, m, tea.KeyEnter)

	_, ok := runCmds(t, cmd)
	assert.False(t, ok, "busy view must not issue another request")
	assert.Equal(t, 0, ft.callCount())
}

// =============================================================================
// EDIT AND VERSION FLOW
// =============================================================================

func sendThrough(t *testing.T, m Model, text string) Model {
	t.Helper()
	m = typeText(t, m, text)
	m, cmd := pressKey(t, m, tea.KeyEnter)
	reply, ok := runCmds(t, cmd)
	require.True(t, ok)
	require.NoError(t, reply.Err)
	next, _ := m.Update(reply)
	return finishReveal(t, next.(Model))
}

func TestEditLast_SeedsComposer(t *testing.T) {
	ft := &fakeTransport{replies: []string{"first answer"}}
	m, _ := newTestModel(t, ft)
	m = sendThrough(t, m, "first question")

	m, _ = pressKey(t, m, tea.KeyCtrlE)
	assert.True(t, m.IsEditing())
	assert.Equal(t, "first question", m.InputValue())
}

func TestEditFlow_CreatesVersion(t *testing.T) {
	ft := &fakeTransport{replies: []string{"first answer", "second answer"}}
	m, controller := newTestModel(t, ft)
	m = sendThrough(t, m, "first question")

	m, _ = pressKey(t, m, tea.KeyCtrlE)
	m.input.SetValue("revised question")
	m, cmd := pressKey(t, m, tea.KeyEnter)

	reply, ok := runCmds(t, cmd)
	require.True(t, ok)
	require.NoError(t, reply.Err)
	next, _ := m.Update(reply)
	m = finishReveal(t, next.(Model))

	turn := controller.Conversation().LastUserTurn()
	require.NotNil(t, turn)
	assert.Equal(t, 2, turn.VersionCount())
	assert.Equal(t, 1, turn.CurrentVersion)
	assert.Equal(t, "revised question", turn.Content)
	assert.False(t, m.IsEditing())
	assert.Contains(t, m.View(), "2/2", "version badge shows active version")
}

func TestVersionSwitch_ReplaysCachedBranch(t *testing.T) {
	ft := &fakeTransport{replies: []string{"first answer", "second answer"}}
	m, controller := newTestModel(t, ft)
	m = sendThrough(t, m, "first question")

	m, _ = pressKey(t, m, tea.KeyCtrlE)
	m.input.SetValue("revised question")
	m, cmd := pressKey(t, m, tea.KeyEnter)
	reply, _ := runCmds(t, cmd)
	next, _ := m.Update(reply)
	m = finishReveal(t, next.(Model))
	callsAfterEdit := ft.callCount()

	m, cmd = pressKey(t, m, tea.KeyCtrlLeft)
	reply, ok := runCmds(t, cmd)
	require.True(t, ok)
	require.NoError(t, reply.Err)
	next, _ = m.Update(reply)
	m = next.(Model)

	turn := controller.Conversation().LastUserTurn()
	assert.Equal(t, 0, turn.CurrentVersion)
	assert.Equal(t, "first question", turn.Content)
	assert.Equal(t, callsAfterEdit, ft.callCount(), "cached branch replays without a request")
	assert.Equal(t, StateReady, m.GetState(), "replayed reply is not fresh")
	assert.Contains(t, m.View(), "first answer")
}

func TestVersionSwitch_NoVersionsIsNoop(t *testing.T) {
	ft := &fakeTransport{replies: []string{"only answer"}}
	m, _ := newTestModel(t, ft)
	m = sendThrough(t, m, "only question")

	m, cmd := pressKey(t, m, tea.KeyCtrlLeft)
	_, ok := runCmds(t, cmd)
	assert.False(t, ok)
	assert.Equal(t, StateReady, m.GetState())
}

// =============================================================================
// FALLBACK AND EMERGENCY
// =============================================================================

func TestFallback_RendersOfflineNotice(t *testing.T) {
	ft := &fakeTransport{err: salus.ErrUnavailable}
	m, controller := newTestModel(t, ft)
	m = sendThrough(t, m, "is my cat ok")

	last := controller.Conversation().LastTurn()
	require.NotNil(t, last)
	assert.True(t, last.Fallback)
	assert.Contains(t, m.View(), "offline")
	assert.Contains(t, m.View(), "trouble connecting")
}

func TestEmergency_BannerShownAndDismissed(t *testing.T) {
	ft := &fakeTransport{replies: []string{"This is an EMERGENCY, go to a vet clinic immediately."}}
	m, controller := newTestModel(t, ft)
	m = sendThrough(t, m, "my dog ate chocolate")

	require.True(t, controller.Session().EmergencyActive())
	assert.Contains(t, m.View(), "EMERGENCY GUIDANCE ACTIVE")

	m, _ = pressKey(t, m, tea.KeyCtrlX)
	assert.False(t, controller.Session().EmergencyActive())
	assert.NotContains(t, m.View(), "EMERGENCY GUIDANCE ACTIVE")
}

// =============================================================================
// VOICE
// =============================================================================

func TestVoiceToggle_UnsupportedShowsError(t *testing.T) {
	ft := &fakeTransport{}
	m, _ := newTestModel(t, ft)

	m, _ = pressKey(t, m, tea.KeyCtrlV)
	assert.Equal(t, StateError, m.GetState())
	assert.Contains(t, m.View(), "Voice Input Unavailable")

	m, _ = pressKey(t, m, tea.KeyEsc)
	assert.Equal(t, StateReady, m.GetState())
}

func TestVoiceTranscript_AppendsToComposer(t *testing.T) {
	ft := &fakeTransport{}
	m, _ := newTestModel(t, ft)
	m = typeText(t, m, "my dog")

	next, cmd := m.Update(VoiceTranscriptMsg{Fragment: "will not eat"})
	m = next.(Model)

	assert.Equal(t, "my dog will not eat", m.InputValue())
	assert.NotNil(t, cmd, "voice event pump re-arms")
}

// =============================================================================
// MISC UI
// =============================================================================

func TestNewConversation_ResetsView(t *testing.T) {
	ft := &fakeTransport{replies: []string{"answer"}}
	m, controller := newTestModel(t, ft)
	m = sendThrough(t, m, "question")

	m, _ = pressKey(t, m, tea.KeyCtrlN)
	assert.Equal(t, 1, controller.Conversation().TurnCount(), "only the welcome turn remains")
	assert.Equal(t, StateReady, m.GetState())
	assert.Equal(t, "", m.InputValue())
}

// TestNewConversation_ClearsServiceSession: starting a new chat asks the
// service to drop the old session's state.
func TestNewConversation_ClearsServiceSession(t *testing.T) {
	ft := &fakeTransport{replies: []string{"answer"}}
	svc := &fakeService{healthy: true}
	m, controller := newTestModelWithService(t, ft, svc)
	m = sendThrough(t, m, "question")
	oldID := controller.Session().SessionID()

	m, cmd := pressKey(t, m, tea.KeyCtrlN)
	require.NotNil(t, cmd, "new chat issues the clear command")
	cmd()

	assert.Equal(t, []string{oldID}, svc.clearedSessions())
	assert.NotEqual(t, oldID, controller.Session().SessionID())
	assert.Equal(t, 1, controller.Conversation().TurnCount())
}

func TestHealthProbe_UpdatesStatusIndicator(t *testing.T) {
	ft := &fakeTransport{}
	svc := &fakeService{healthy: true}
	m, _ := newTestModelWithService(t, ft, svc)

	probe := m.healthCmd()
	require.NotNil(t, probe)
	next, _ := m.Update(probe())
	m = next.(Model)
	assert.Contains(t, m.View(), "[online]")

	svc.setHealthy(false)
	next, _ = m.Update(m.healthCmd()())
	m = next.(Model)
	assert.Contains(t, m.View(), "[offline]")
	assert.NotContains(t, m.View(), "[online]")
}

func TestHelpOverlay_TogglesAndCloses(t *testing.T) {
	ft := &fakeTransport{}
	m, _ := newTestModel(t, ft)

	m, _ = pressKey(t, m, tea.KeyF1)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m = typeText(t, m, "x")
	assert.NotContains(t, m.View(), "Keyboard Shortcuts")
	assert.Equal(t, "", m.InputValue(), "closing key is swallowed")
}

func TestView_ContainsWelcomeTurn(t *testing.T) {
	ft := &fakeTransport{}
	m, _ := newTestModel(t, ft)

	view := m.View()
	assert.Contains(t, view, "Dr. Salus")
	assert.True(t, strings.Contains(view, "veterinary assistant") ||
		strings.Contains(view, "Dr. Salus AI"), "welcome text rendered")
}
