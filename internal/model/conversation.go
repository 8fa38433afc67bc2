// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxTurns is the maximum number of turns to keep in conversation history.
// When exceeded, old turns are pruned to prevent unbounded memory growth.
// The welcome turn is always preserved.
const MaxTurns = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
//
// The first turn is the canned welcome turn; it never participates in the
// history sent to the service. All structural mutation goes through the
// controller, which replaces the turn sequence rather than editing it in
// place.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Turns, welcome turn first.
	Turns []*Turn `json:"turns"`
}

// NewConversation creates a new conversation seeded with a welcome turn.
// The welcome turn is never Fresh (it renders immediately) and is excluded
// from request history.
func NewConversation(welcomeText string) *Conversation {
	c := &Conversation{
		ID:        generateConversationID(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Turns:     make([]*Turn, 0, 8),
	}
	if welcomeText != "" {
		c.Turns = append(c.Turns, NewAssistantTurn(welcomeText, false))
	}
	return c
}

// =============================================================================
// TURN ACCESS
// =============================================================================

// AppendTurn adds a turn to the conversation.
func (c *Conversation) AppendTurn(t *Turn) {
	c.Turns = append(c.Turns, t)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldTurns()
}

// TurnByID returns the turn with the given ID and its index, or (nil, -1).
func (c *Conversation) TurnByID(id string) (*Turn, int) {
	for i, t := range c.Turns {
		if t.ID == id {
			return t, i
		}
	}
	return nil, -1
}

// LastTurn returns the most recent turn, or nil if empty.
func (c *Conversation) LastTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return c.Turns[len(c.Turns)-1]
}

// LastUserTurn returns the most recent user turn, or nil.
func (c *Conversation) LastUserTurn() *Turn {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleUser {
			return c.Turns[i]
		}
	}
	return nil
}

// LastAssistantTurn returns the most recent assistant turn, or nil.
func (c *Conversation) LastAssistantTurn() *Turn {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleAssistant {
			return c.Turns[i]
		}
	}
	return nil
}

// TruncateAfter drops every turn after index i. The turns removed are
// returned in order so the caller can cache them as a branch.
func (c *Conversation) TruncateAfter(i int) []*Turn {
	if i < 0 || i >= len(c.Turns)-1 {
		return nil
	}
	removed := make([]*Turn, len(c.Turns)-i-1)
	copy(removed, c.Turns[i+1:])
	c.Turns = c.Turns[:i+1]
	c.UpdatedAt = time.Now()
	return removed
}

// TurnCount returns the number of turns.
func (c *Conversation) TurnCount() int {
	return len(c.Turns)
}

// IsEmpty returns true if there are no turns beyond the welcome turn.
func (c *Conversation) IsEmpty() bool {
	return len(c.Turns) <= 1
}

// =============================================================================
// REQUEST HISTORY
// =============================================================================

// HistoryEntry is one prior exchange turn in wire order.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History returns the prior turns in wire form, excluding the welcome
// turn and excluding the last upTo turns (the caller passes 1 when the
// outgoing user turn has already been appended).
func (c *Conversation) History(excludeLast int) []HistoryEntry {
	end := len(c.Turns) - excludeLast
	if end < 0 {
		end = 0
	}
	entries := make([]HistoryEntry, 0, end)
	for i, t := range c.Turns {
		if i >= end {
			break
		}
		if i == 0 && t.Role == RoleAssistant {
			// Welcome turn is presentation only.
			continue
		}
		entries = append(entries, HistoryEntry{
			Role:    t.Role.String(),
			Content: t.Content,
		})
	}
	return entries
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user turn if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, t := range c.Turns {
		if t.Role == RoleUser {
			c.Title = t.Preview(50)
			return
		}
	}
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// =============================================================================
// SERIALIZATION HELPERS
// =============================================================================

// Preview returns a short preview of the conversation.
func (c *Conversation) Preview() string {
	if len(c.Turns) == 0 {
		return "Empty conversation"
	}

	t := c.LastUserTurn()
	if t == nil {
		t = c.Turns[0]
	}
	return t.Preview(100)
}

// GetMeta returns metadata about the conversation.
func (c *Conversation) GetMeta() ConversationMeta {
	return ConversationMeta{
		ID:        c.ID,
		Title:     c.GetTitle(),
		TurnCount: len(c.Turns),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Preview:   c.Preview(),
	}
}

// ConversationMeta holds lightweight metadata for listing.
type ConversationMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Preview   string    `json:"preview"`
}

// Clone creates a deep copy of the conversation, branch caches included.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Turns:     make([]*Turn, len(c.Turns)),
	}
	for i, t := range c.Turns {
		clone.Turns[i] = t.Clone()
	}
	return clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	return "conv_" + uuid.NewString()
}

// pruneOldTurns removes old turns when history exceeds MaxTurns.
// The welcome turn (index 0) is always kept.
func (c *Conversation) pruneOldTurns() {
	if len(c.Turns) <= MaxTurns {
		return
	}

	var welcome []*Turn
	rest := c.Turns
	if len(rest) > 0 && rest[0].Role == RoleAssistant && len(rest[0].Versions) == 0 {
		welcome = rest[:1]
		rest = rest[1:]
	}

	keep := MaxTurns - len(welcome)
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}

	c.Turns = make([]*Turn, 0, len(welcome)+len(rest))
	c.Turns = append(c.Turns, welcome...)
	c.Turns = append(c.Turns, rest...)
}
