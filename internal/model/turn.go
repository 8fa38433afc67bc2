// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Dr. Salus"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents a single turn in a conversation.
//
// User turns carry every edited version of their text in Versions;
// Content always mirrors Versions[CurrentVersion]. The branch maps cache
// the assistant reply and trailing turns produced under each version, so
// switching back to a previously explored version restores its branch
// without another request.
type Turn struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Content currently displayed. For user turns this is always
	// Versions[CurrentVersion].
	Content string `json:"content"`

	// Fresh marks an assistant turn whose text has not finished its
	// typing reveal yet. Cleared by the controller acknowledgement.
	Fresh bool `json:"fresh,omitempty"`

	// Fallback marks the synthesized assistant turn shown when the
	// service could not be reached. Fallback turns are never cached as
	// branch replies and are never scanned for emergencies.
	Fallback bool `json:"fallback,omitempty"`

	// Edit versions (user turns only).
	Versions       []string `json:"versions,omitempty"`
	CurrentVersion int      `json:"current_version,omitempty"`

	// Cached branches keyed by version index (user turns only).
	BranchReplies map[int]*Turn   `json:"branch_replies,omitempty"`
	BranchTails   map[int][]*Turn `json:"branch_tails,omitempty"`
}

// NewUserTurn creates a user turn with the given text as its first version.
func NewUserTurn(content string) *Turn {
	return &Turn{
		ID:        generateTurnID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
		Versions:  []string{content},
	}
}

// NewAssistantTurn creates an assistant turn. Fresh turns are revealed
// progressively by the UI before being acknowledged.
func NewAssistantTurn(content string, fresh bool) *Turn {
	return &Turn{
		ID:        generateTurnID(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
		Fresh:     fresh,
	}
}

// =============================================================================
// VERSION MANAGEMENT
// =============================================================================

// VersionCount returns the number of edit versions. Assistant turns and
// never-edited user turns report 1.
func (t *Turn) VersionCount() int {
	if len(t.Versions) == 0 {
		return 1
	}
	return len(t.Versions)
}

// HasVersion reports whether idx is a valid version index.
func (t *Turn) HasVersion(idx int) bool {
	return idx >= 0 && idx < len(t.Versions)
}

// IndexOfVersion returns the index of an existing version with the given
// text, or -1 if no version matches.
func (t *Turn) IndexOfVersion(text string) int {
	for i, v := range t.Versions {
		if v == text {
			return i
		}
	}
	return -1
}

// AddVersion appends a new version, makes it current, and returns its
// index. The caller is responsible for deduplicating against existing
// versions first.
func (t *Turn) AddVersion(text string) int {
	t.Versions = append(t.Versions, text)
	t.CurrentVersion = len(t.Versions) - 1
	t.Content = text
	return t.CurrentVersion
}

// SelectVersion makes an existing version current. Returns false if idx
// is out of range.
func (t *Turn) SelectVersion(idx int) bool {
	if !t.HasVersion(idx) {
		return false
	}
	t.CurrentVersion = idx
	t.Content = t.Versions[idx]
	return true
}

// =============================================================================
// BRANCH CACHE
// =============================================================================

// CacheBranch stores the reply and tail produced under version idx.
// A nil reply records "this version has no reply yet" and clears any
// stale entry, keeping at most one live reply per version.
func (t *Turn) CacheBranch(idx int, reply *Turn, tail []*Turn) {
	if reply == nil {
		delete(t.BranchReplies, idx)
		delete(t.BranchTails, idx)
		return
	}
	if t.BranchReplies == nil {
		t.BranchReplies = make(map[int]*Turn)
	}
	if t.BranchTails == nil {
		t.BranchTails = make(map[int][]*Turn)
	}
	t.BranchReplies[idx] = reply
	t.BranchTails[idx] = tail
}

// CachedBranch returns the cached reply and tail for version idx.
// ok is false when no reply was ever produced under that version.
func (t *Turn) CachedBranch(idx int) (reply *Turn, tail []*Turn, ok bool) {
	reply, ok = t.BranchReplies[idx]
	if !ok {
		return nil, nil, false
	}
	return reply, t.BranchTails[idx], true
}

// =============================================================================
// TURN METHODS
// =============================================================================

// Preview returns a truncated preview of the turn content.
// Uses rune-based truncation to handle Unicode correctly.
func (t *Turn) Preview(maxLen int) string {
	runes := []rune(t.Content)
	if len(runes) <= maxLen {
		return t.Content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the turn has no content.
func (t *Turn) IsEmpty() bool {
	return len(t.Content) == 0
}

// Clone creates a deep copy of the turn, including cached branches.
func (t *Turn) Clone() *Turn {
	clone := *t
	if t.Versions != nil {
		clone.Versions = append([]string(nil), t.Versions...)
	}
	if t.BranchReplies != nil {
		clone.BranchReplies = make(map[int]*Turn, len(t.BranchReplies))
		for idx, reply := range t.BranchReplies {
			clone.BranchReplies[idx] = reply.Clone()
		}
	}
	if t.BranchTails != nil {
		clone.BranchTails = make(map[int][]*Turn, len(t.BranchTails))
		for idx, tail := range t.BranchTails {
			tailCopy := make([]*Turn, len(tail))
			for i, turn := range tail {
				tailCopy[i] = turn.Clone()
			}
			clone.BranchTails[idx] = tailCopy
		}
	}
	return &clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateTurnID creates a unique turn ID.
func generateTurnID() string {
	return "turn_" + uuid.NewString()
}
