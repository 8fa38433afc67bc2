// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for salus TUI.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/salus-tui/internal/model"
	"github.com/jeranaias/salus-tui/internal/util"
)

// ErrConversationNotFound is returned when a conversation doesn't exist.
var ErrConversationNotFound = errors.New("conversation not found")

// DefaultMaxConversations limits stored conversations. Oldest are
// evicted on save once the limit is exceeded.
const DefaultMaxConversations = 100

// schema holds the full conversation document as JSON alongside the
// columns needed for listing without unmarshaling every row.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	preview    TEXT NOT NULL,
	turn_count INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	document   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
`

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store persists conversations in a SQLite database, one row per
// conversation with the turn tree serialized as a JSON document.
type Store struct {
	db *sql.DB

	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int
}

// Open opens (creating if needed) the conversation database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, MaxConversations: DefaultMaxConversations}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save upserts a conversation and returns its ID.
func (s *Store) Save(conv *model.Conversation) (string, error) {
	doc, err := json.Marshal(conv)
	if err != nil {
		return "", fmt.Errorf("failed to encode conversation: %w", err)
	}

	meta := conv.GetMeta()
	_, err = s.db.Exec(`
		INSERT INTO conversations (id, title, preview, turn_count, created_at, updated_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			preview    = excluded.preview,
			turn_count = excluded.turn_count,
			updated_at = excluded.updated_at,
			document   = excluded.document`,
		meta.ID, meta.Title, meta.Preview, meta.TurnCount,
		meta.CreatedAt.UTC(), meta.UpdatedAt.UTC(), string(doc))
	if err != nil {
		return "", fmt.Errorf("failed to save conversation: %w", err)
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}
	return meta.ID, nil
}

// enforceLimit removes the oldest conversations if over limit.
func (s *Store) enforceLimit() {
	s.db.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *Store) Load(id string) (*model.Conversation, error) {
	var doc string
	err := s.db.QueryRow(
		"SELECT document FROM conversations WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var conv model.Conversation
	if err := json.Unmarshal([]byte(doc), &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// LoadLatest retrieves the most recently updated conversation.
func (s *Store) LoadLatest() (*model.Conversation, error) {
	var id string
	err := s.db.QueryRow(
		"SELECT id FROM conversations ORDER BY updated_at DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest conversation: %w", err)
	}
	return s.Load(id)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all saved conversations (most recent first).
func (s *Store) List() ([]model.ConversationMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, title, preview, turn_count, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var metas []model.ConversationMeta
	for rows.Next() {
		var m model.ConversationMeta
		if err := rows.Scan(&m.ID, &m.Title, &m.Preview, &m.TurnCount,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Search finds conversations whose title or preview matches the query
// (case-insensitive).
func (s *Store) Search(query string) ([]model.ConversationMeta, error) {
	if query == "" {
		return s.List()
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []model.ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// SearchTurns finds conversations where any turn contains the query
// string (case-insensitive). Loads full documents, so slower than Search.
func (s *Store) SearchTurns(query string) ([]model.ConversationMeta, error) {
	if query == "" {
		return s.List()
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []model.ConversationMeta
	for _, meta := range all {
		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, turn := range conv.Turns {
			if strings.Contains(strings.ToLower(turn.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Clear removes all saved conversations.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM conversations")
	return err
}

// Count returns the number of stored conversations.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&n)
	return n, err
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList formats saved conversations for display in a table.
func FormatSessionList(sessions []model.ConversationMeta) string {
	if len(sessions) == 0 {
		return "No saved conversations."
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(formatPadded("ID", 14) + " " + formatPadded("Updated", 18) + " " + formatPadded("Turns", 6) + " Preview\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, m := range sessions {
		idStr := m.ID
		if len(idStr) > 14 {
			idStr = idStr[:14]
		}
		sb.WriteString(formatPadded(idStr, 14) + " " +
			formatPadded(m.UpdatedAt.Format("2006-01-02 15:04"), 18) + " " +
			formatPadded(fmt.Sprintf("%d", m.TurnCount), 6) + " " +
			util.TruncateRunes(m.Preview, 32) + "\n")
	}
	return sb.String()
}

// formatPadded pads a string to the specified width with spaces.
func formatPadded(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown with role labels
// and timestamps. Only the active version of each turn is included.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, turn := range conv.Turns {
		sb.WriteString("**" + turn.Role.DisplayName() + "** (" + turn.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(turn.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}
