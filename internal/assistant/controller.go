// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant implements the Dr. Salus conversation engine.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/salus-tui/internal/model"
	"github.com/jeranaias/salus-tui/internal/salus"
	"github.com/jeranaias/salus-tui/internal/session"
)

// WelcomeText is the canned greeting that opens every conversation. It is
// presentation only and never included in request history.
const WelcomeText = "Hello! I'm Dr. Salus AI, your intelligent veterinary assistant. " +
	"I can help you with pet diagnosis, diet recommendations, personalized care plans, " +
	"and connect you with the best vets and trainers. How can I assist you today?"

// FallbackText is the synthesized reply shown when the service cannot be
// reached. It is never scanned for emergencies and never cached as a
// branch reply.
const FallbackText = "I'm sorry, I'm having trouble connecting to the AI service right now. " +
	"Please try again later."

// Error variables for controller operations.
var (
	// ErrEmptyMessage indicates a send or edit with no text after trimming.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrBusy indicates a reply-producing operation while another request
	// is already in flight for this session.
	ErrBusy = errors.New("a request is already in flight")

	// ErrUnknownTurn indicates the referenced turn does not exist.
	ErrUnknownTurn = errors.New("unknown turn")

	// ErrNotUserTurn indicates an edit or version switch on an assistant turn.
	ErrNotUserTurn = errors.New("only user turns can be edited")

	// ErrBadVersion indicates a version index out of range.
	ErrBadVersion = errors.New("version index out of range")
)

// Transport is the chat service dependency. *salus.Client satisfies it;
// tests substitute a fake that counts calls.
type Transport interface {
	Chat(ctx context.Context, req salus.ChatRequest) (*salus.ChatReply, error)
}

// Controller orchestrates the conversation: sending, editing with version
// forking, switching between versions, and the typing-reveal handshake.
//
// All operations serialize on one mutex, and at most one transport request
// is in flight per session: a second reply-producing call while one is
// pending returns ErrBusy instead of racing on the turn sequence. Transport
// failures never escape; they become the fallback turn, keeping the
// conversation displayable after any outage.
type Controller struct {
	mu        sync.Mutex
	conv      *model.Conversation
	sess      *session.Manager
	transport Transport
	inFlight  bool
}

// NewController creates a controller over a fresh conversation.
func NewController(transport Transport, sess *session.Manager) *Controller {
	return &Controller{
		conv:      model.NewConversation(WelcomeText),
		sess:      sess,
		transport: transport,
	}
}

// Conversation returns a deep snapshot of the conversation for rendering
// or persistence. Callers never see the live sequence.
func (c *Controller) Conversation() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Clone()
}

// RestoreConversation replaces the conversation, e.g. when resuming a
// stored session. No-op while a request is in flight.
func (c *Controller) RestoreConversation(conv *model.Conversation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBusy
	}
	c.conv = conv.Clone()
	return nil
}

// NewConversation discards the current conversation and starts over with
// a fresh welcome turn and a fresh session id.
func (c *Controller) NewConversation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBusy
	}
	c.conv = model.NewConversation(WelcomeText)
	c.sess.Reset()
	return nil
}

// Busy reports whether a transport request is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Session returns the session manager backing this controller.
func (c *Controller) Session() *session.Manager {
	return c.sess
}

// wireHistory converts conversation history entries to the transport's
// wire representation. The two types are structurally identical.
func wireHistory(entries []model.HistoryEntry) []salus.HistoryMessage {
	msgs := make([]salus.HistoryMessage, len(entries))
	for i, e := range entries {
		msgs[i] = salus.HistoryMessage(e)
	}
	return msgs
}

// =============================================================================
// SEND
// =============================================================================

// Send appends a user turn and requests a reply.
//
// Empty text is rejected before any mutation. On transport failure the
// fallback turn is appended and a nil error returned: failures surface
// inside the conversation, not as errors. The returned turn is the
// assistant reply (real or fallback).
func (c *Controller) Send(ctx context.Context, text string) (*model.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.inFlight = true
	userTurn := model.NewUserTurn(text)
	c.conv.AppendTurn(userTurn)
	req := salus.ChatRequest{
		Message:   text,
		SessionID: c.sess.SessionID(),
		History:   wireHistory(c.conv.History(1)),
	}
	c.mu.Unlock()

	reply, err := c.transport.Chat(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	return c.appendReply(reply, err, nil, -1), nil
}

// =============================================================================
// EDIT
// =============================================================================

// EditMessage rewrites history from a past user turn.
//
// The branch currently hanging off the turn is captured under the old
// version index, the sequence is truncated to the edited turn, and a
// fresh reply is requested for the new text. Prior branches stay fully
// reconstructable via SwitchVersion.
func (c *Controller) EditMessage(ctx context.Context, turnID, newText string) (*model.Turn, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	turn, idx := c.conv.TurnByID(turnID)
	if turn == nil {
		c.mu.Unlock()
		return nil, ErrUnknownTurn
	}
	if turn.Role != model.RoleUser {
		c.mu.Unlock()
		return nil, ErrNotUserTurn
	}

	c.captureBranchLocked(turn, idx)
	c.conv.TruncateAfter(idx)

	// Identical text reuses its existing version slot; the reply is
	// regenerated either way.
	newIdx := turn.IndexOfVersion(newText)
	if newIdx < 0 {
		newIdx = turn.AddVersion(newText)
	} else {
		turn.SelectVersion(newIdx)
	}

	c.inFlight = true
	req := salus.ChatRequest{
		Message:   newText,
		SessionID: c.sess.SessionID(),
		History:   wireHistory(c.conv.History(1)),
	}
	c.mu.Unlock()

	reply, err := c.transport.Chat(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	return c.appendReply(reply, err, turn, newIdx), nil
}

// =============================================================================
// VERSION SWITCH
// =============================================================================

// SwitchVersion navigates between previously-typed edits of a user turn.
//
// The current branch is captured first, then the cached branch for the
// target version is spliced back in (not fresh, it was seen before) with
// no network call. If that version never produced a reply, or its only
// reply was a fallback, a fresh request is issued and cached.
func (c *Controller) SwitchVersion(ctx context.Context, turnID string, targetIdx int) (*model.Turn, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	turn, idx := c.conv.TurnByID(turnID)
	if turn == nil {
		c.mu.Unlock()
		return nil, ErrUnknownTurn
	}
	if turn.Role != model.RoleUser {
		c.mu.Unlock()
		return nil, ErrNotUserTurn
	}
	if !turn.HasVersion(targetIdx) {
		c.mu.Unlock()
		return nil, ErrBadVersion
	}

	c.captureBranchLocked(turn, idx)
	c.conv.TruncateAfter(idx)
	turn.SelectVersion(targetIdx)

	if reply, tail, ok := turn.CachedBranch(targetIdx); ok {
		// Deterministic replay: the cached branch returns verbatim,
		// marked not-fresh.
		restored := reply.Clone()
		restored.Fresh = false
		c.conv.AppendTurn(restored)
		for _, t := range tail {
			c.conv.AppendTurn(t.Clone())
		}
		c.sess.MarkDirty()
		c.mu.Unlock()
		return restored, nil
	}

	c.inFlight = true
	req := salus.ChatRequest{
		Message:   turn.Content,
		SessionID: c.sess.SessionID(),
		History:   wireHistory(c.conv.History(1)),
	}
	c.mu.Unlock()

	reply, err := c.transport.Chat(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	return c.appendReply(reply, err, turn, targetIdx), nil
}

// =============================================================================
// TYPING ACKNOWLEDGEMENT
// =============================================================================

// AcknowledgeTypingComplete clears the Fresh flag on a turn once its
// reveal animation finished. Idempotent; unknown turns are ignored.
func (c *Controller) AcknowledgeTypingComplete(turnID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if turn, _ := c.conv.TurnByID(turnID); turn != nil {
		turn.Fresh = false
	}
}

// =============================================================================
// INTERNAL
// =============================================================================

// captureBranchLocked stores the branch currently hanging off a user turn
// under its current version index. Idempotent: the latest observed
// continuation overwrites any stale cache. A fallback reply is not a real
// branch; the cache entry is cleared instead so revisiting that version
// re-requests. Caller holds c.mu.
func (c *Controller) captureBranchLocked(turn *model.Turn, idx int) {
	if idx+1 >= len(c.conv.Turns) {
		return
	}
	next := c.conv.Turns[idx+1]
	if next.Role != model.RoleAssistant || next.Fallback {
		turn.CacheBranch(turn.CurrentVersion, nil, nil)
		return
	}
	var tail []*model.Turn
	for _, t := range c.conv.Turns[idx+2:] {
		tail = append(tail, t.Clone())
	}
	turn.CacheBranch(turn.CurrentVersion, next.Clone(), tail)
}

// appendReply turns a transport result into the next assistant turn.
// On success the reply is appended fresh and scanned for emergencies;
// when produced for a specific version of an edited turn it is also
// cached under that version index. On failure the fallback turn is
// appended instead, unscanned and uncached. Caller holds c.mu.
func (c *Controller) appendReply(reply *salus.ChatReply, err error, userTurn *model.Turn, versionIdx int) *model.Turn {
	if err != nil || reply == nil {
		fallback := model.NewAssistantTurn(FallbackText, true)
		fallback.Fallback = true
		c.conv.AppendTurn(fallback)
		c.sess.MarkDirty()
		return fallback
	}

	assistant := model.NewAssistantTurn(reply.Response, true)
	c.conv.AppendTurn(assistant)
	if userTurn != nil && versionIdx >= 0 {
		userTurn.CacheBranch(versionIdx, assistant.Clone(), nil)
	}
	if DetectEmergency(reply.Response) {
		c.sess.RaiseEmergency()
	}
	c.sess.MarkDirty()
	return assistant
}
