// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - Chat model state and construction.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/salus-tui/internal/assistant"
	"github.com/jeranaias/salus-tui/internal/config"
	"github.com/jeranaias/salus-tui/internal/model"
	"github.com/jeranaias/salus-tui/internal/session"
	"github.com/jeranaias/salus-tui/internal/storage"
	"github.com/jeranaias/salus-tui/internal/ui/styles"
	"github.com/jeranaias/salus-tui/internal/voice"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateWaiting                // Request in flight
	StateRevealing              // Typing out a fresh reply
	StateError                  // Showing an error
)

// MaxInputRunes caps the composer length.
const MaxInputRunes = 2000

// revealChunk is how many runes each reveal tick uncovers.
const revealChunk = 3

// placeholders rotate through the composer hint text between sends.
var placeholders = []string{
	"e.g. My dog keeps scratching his ears...",
	"e.g. How often should I feed a kitten?",
	"e.g. Is chocolate dangerous for dogs?",
	"e.g. My cat stopped eating, what should I do?",
	"e.g. What vaccines does a puppy need?",
}

// Service is the backend surface the chat view talks to directly:
// liveness probing for the status bar indicator and best-effort session
// clearing when a new chat starts. *salus.Client satisfies it.
type Service interface {
	Health(ctx context.Context) error
	ClearSession(ctx context.Context, sessionID string) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Conversation engine. The controller owns the live conversation;
	// the model renders from an immutable snapshot refreshed after
	// every operation.
	controller *assistant.Controller
	snapshot   *model.Conversation

	// Persistence
	store *storage.Store

	// Backend service access for the health probe and session clearing.
	service       Service
	serviceOnline bool
	healthChecked bool

	// Voice input
	voiceAdapter *voice.Adapter
	voiceState   voice.State
	voiceEvents  chan tea.Msg

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Markdown rendering for assistant replies
	markdownEnabled bool
	markdown        *glamour.TermRenderer

	// Key bindings
	keyMap KeyMap

	// Edit mode: non-empty while the composer holds an edit of an
	// earlier user turn.
	editingTurnID string

	// pendingText holds an outgoing message between submit and reply so
	// the user sees it before the round trip finishes.
	pendingText string

	// Reveal state for fresh replies
	revealTurnID   string
	revealed       int
	revealInterval time.Duration

	// Error state
	lastError *ErrorMsg

	// Status
	statusMsg      string
	showHelp       bool
	placeholderIdx int
}

// New creates a new chat model.
func New(theme *styles.Theme, controller *assistant.Controller, store *storage.Store, voiceAdapter *voice.Adapter, service Service, cfg *config.Config) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholders[0]
	ti.CharLimit = MaxInputRunes
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII-compatible spinner animation
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 12,
	}
	sp.Style = theme.Spinner

	m := Model{
		state:           StateReady,
		theme:           theme,
		controller:      controller,
		snapshot:        controller.Conversation(),
		store:           store,
		service:         service,
		voiceAdapter:    voiceAdapter,
		voiceState:      voice.Idle,
		voiceEvents:     make(chan tea.Msg, 16),
		viewport:        vp,
		input:           ti,
		spinner:         sp,
		keyMap:          DefaultKeyMap(),
		markdownEnabled: cfg.UI.Markdown,
		revealInterval:  time.Duration(cfg.UI.TypingIntervalMs) * time.Millisecond,
	}

	if voiceAdapter != nil {
		events := m.voiceEvents
		voiceAdapter.OnTranscript = func(fragment string) {
			events <- VoiceTranscriptMsg{Fragment: fragment}
		}
		voiceAdapter.OnNetworkError = func() {
			events <- VoiceNetworkErrorMsg{}
		}
		voiceAdapter.OnStateChange = func(s voice.State) {
			events <- VoiceStateMsg{State: s}
		}
	}

	return m
}

// Init starts the blink cursor, session tick, voice event pump, and the
// first health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		session.TickCmd(),
		m.waitVoiceEvent(),
		m.healthCmd(),
	)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// GetState returns the current chat state.
func (m *Model) GetState() State {
	return m.state
}

// Conversation returns the rendered conversation snapshot.
func (m *Model) Conversation() *model.Conversation {
	return m.snapshot
}

// IsEditing reports whether the composer holds an edit in progress.
func (m *Model) IsEditing() bool {
	return m.editingTurnID != ""
}

// InputValue returns the current composer text.
func (m *Model) InputValue() string {
	return m.input.Value()
}

// refreshSnapshot pulls a fresh conversation copy from the controller.
func (m *Model) refreshSnapshot() {
	m.snapshot = m.controller.Conversation()
}

// lastUserTurn returns the most recent user turn of the snapshot.
func (m *Model) lastUserTurn() *model.Turn {
	return m.snapshot.LastUserTurn()
}

// revealTarget returns the turn currently being revealed, or nil.
func (m *Model) revealTarget() *model.Turn {
	if m.revealTurnID == "" {
		return nil
	}
	t, _ := m.snapshot.TurnByID(m.revealTurnID)
	return t
}

// nextPlaceholder rotates the composer placeholder hint.
func (m *Model) nextPlaceholder() {
	m.placeholderIdx = (m.placeholderIdx + 1) % len(placeholders)
	m.input.Placeholder = placeholders[m.placeholderIdx]
}

// Busy reports whether a request or reveal is active.
func (m *Model) Busy() bool {
	return m.state == StateWaiting || m.state == StateRevealing
}

// saveConversation persists the live conversation.
func (m *Model) saveConversation() error {
	if m.store == nil {
		return nil
	}
	_, err := m.store.Save(m.controller.Conversation())
	if err == nil {
		m.controller.Session().MarkClean()
	}
	return err
}

// markdownRender renders assistant content, falling back to the raw
// text when the renderer is unavailable or fails.
func (m *Model) markdownRender(content string) string {
	if !m.markdownEnabled || m.markdown == nil {
		return content
	}
	out, err := m.markdown.Render(content)
	if err != nil {
		return content
	}
	return out
}

// rebuildMarkdown recreates the glamour renderer for the current width.
func (m *Model) rebuildMarkdown() {
	if !m.markdownEnabled {
		return
	}
	wrap := m.width - 12
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}
