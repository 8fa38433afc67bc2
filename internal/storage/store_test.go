// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/salus-tui/internal/model"
)

const testWelcome = "Hello! I'm Dr. Salus."

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "conversations.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestConversation(userText, replyText string) *model.Conversation {
	conv := model.NewConversation(testWelcome)
	conv.AppendTurn(model.NewUserTurn(userText))
	conv.AppendTurn(model.NewAssistantTurn(replyText, false))
	return conv
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	conv := newTestConversation("My dog keeps scratching", "It could be fleas or allergies.")
	id, err := store.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id != conv.ID {
		t.Errorf("Save returned id %q, want %q", id, conv.ID)
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != conv.ID {
		t.Errorf("loaded ID = %q, want %q", loaded.ID, conv.ID)
	}
	if len(loaded.Turns) != 3 {
		t.Fatalf("loaded %d turns, want 3", len(loaded.Turns))
	}
	if loaded.Turns[1].Content != "My dog keeps scratching" {
		t.Errorf("user turn content = %q", loaded.Turns[1].Content)
	}
	if loaded.Turns[2].Role != model.RoleAssistant {
		t.Errorf("turn 2 role = %v", loaded.Turns[2].Role)
	}
}

func TestSaveLoad_PreservesVersionsAndBranches(t *testing.T) {
	store := newTestStore(t)

	conv := newTestConversation("How often should I feed a kitten?", "Four small meals a day.")
	userTurn := conv.Turns[1]
	userTurn.AddVersion("How often should I feed an adult cat?")
	userTurn.CacheBranch(0, model.NewAssistantTurn("Four small meals a day.", false), nil)

	id, err := store.Save(conv)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatal(err)
	}

	got := loaded.Turns[1]
	if got.VersionCount() != 2 {
		t.Fatalf("loaded version count = %d, want 2", got.VersionCount())
	}
	if got.CurrentVersion != 1 {
		t.Errorf("loaded current version = %d, want 1", got.CurrentVersion)
	}
	reply, _, ok := got.CachedBranch(0)
	if !ok {
		t.Fatal("cached branch for version 0 lost in round trip")
	}
	if reply.Content != "Four small meals a day." {
		t.Errorf("cached reply content = %q", reply.Content)
	}
}

func TestSave_Upserts(t *testing.T) {
	store := newTestStore(t)

	conv := newTestConversation("first question", "first answer")
	if _, err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	conv.AppendTurn(model.NewUserTurn("follow-up"))
	if _, err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d after resaving same conversation, want 1", n)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Turns) != 4 {
		t.Errorf("loaded %d turns after upsert, want 4", len(loaded.Turns))
	}
}

func TestLoad_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("conv_missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Load error = %v, want ErrConversationNotFound", err)
	}
}

func TestList_MostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	older := newTestConversation("older question", "older answer")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := newTestConversation("newer question", "newer answer")

	if _, err := store.Save(older); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("listed %d conversations, want 2", len(metas))
	}
	if metas[0].ID != newer.ID {
		t.Errorf("first listed = %s, want most recent %s", metas[0].ID, newer.ID)
	}
	if metas[0].TurnCount != 3 {
		t.Errorf("turn count = %d, want 3", metas[0].TurnCount)
	}
	if !strings.Contains(metas[0].Preview, "newer question") {
		t.Errorf("preview = %q", metas[0].Preview)
	}
}

func TestList_Empty(t *testing.T) {
	store := newTestStore(t)

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Errorf("listed %d conversations from empty store", len(metas))
	}
}

func TestLoadLatest(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.LoadLatest(); !errors.Is(err, ErrConversationNotFound) {
		t.Error("LoadLatest on empty store should report not found")
	}

	older := newTestConversation("older", "reply")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := newTestConversation("newer", "reply")

	if _, err := store.Save(older); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	latest, err := store.LoadLatest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != newer.ID {
		t.Errorf("latest = %s, want %s", latest.ID, newer.ID)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	conv := newTestConversation("question", "answer")
	if _, err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(conv.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Error("conversation still loadable after delete")
	}
	if err := store.Delete(conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("second Delete error = %v, want ErrConversationNotFound", err)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		conv := newTestConversation(fmt.Sprintf("question %d", i), "answer")
		if _, err := store.Save(conv); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	n, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count = %d after Clear, want 0", n)
	}
}

func TestMaxConversations_EvictsOldest(t *testing.T) {
	store := newTestStore(t)
	store.MaxConversations = 3

	var ids []string
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		conv := newTestConversation(fmt.Sprintf("question %d", i), "answer")
		conv.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		id, err := store.Save(conv)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	// The two oldest are gone, the newest three remain.
	for _, id := range ids[:2] {
		if _, err := store.Load(id); !errors.Is(err, ErrConversationNotFound) {
			t.Errorf("old conversation %s survived eviction", id)
		}
	}
	for _, id := range ids[2:] {
		if _, err := store.Load(id); err != nil {
			t.Errorf("recent conversation %s evicted: %v", id, err)
		}
	}
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)

	dog := newTestConversation("My dog keeps scratching his ears", "Could be mites.")
	cat := newTestConversation("My cat stopped eating", "Watch for lethargy.")
	if _, err := store.Save(dog); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(cat); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search("DOG")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != dog.ID {
		t.Errorf("Search(DOG) = %v", results)
	}

	all, err := store.Search("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("empty query returned %d results, want 2", len(all))
	}
}

func TestSearchTurns_MatchesReplyContent(t *testing.T) {
	store := newTestStore(t)

	conv := newTestConversation("What's wrong with my parrot?", "Feather plucking often signals stress.")
	other := newTestConversation("Puppy training tips", "Short sessions work best.")
	if _, err := store.Save(conv); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(other); err != nil {
		t.Fatal(err)
	}

	results, err := store.SearchTurns("feather plucking")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != conv.ID {
		t.Errorf("SearchTurns matched %d conversations", len(results))
	}
}

func TestFormatSessionList(t *testing.T) {
	out := FormatSessionList(nil)
	if out != "No saved conversations." {
		t.Errorf("empty list output = %q", out)
	}

	metas := []model.ConversationMeta{
		{
			ID:        "conv_abc123def456",
			Title:     "Dog scratching",
			Preview:   "My dog keeps scratching",
			TurnCount: 3,
			UpdatedAt: time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC),
		},
	}
	out = FormatSessionList(metas)
	if !strings.Contains(out, "conv_abc123def") {
		t.Errorf("output missing id: %q", out)
	}
	if !strings.Contains(out, "My dog keeps scratching") {
		t.Errorf("output missing preview: %q", out)
	}
}

func TestExportMarkdown(t *testing.T) {
	conv := newTestConversation("Is chocolate bad for dogs?", "Yes, chocolate is toxic to dogs.")

	out := ExportMarkdown(conv)
	if !strings.Contains(out, "**You**") {
		t.Error("export missing user label")
	}
	if !strings.Contains(out, "**Dr. Salus**") {
		t.Error("export missing assistant label")
	}
	if !strings.Contains(out, "chocolate is toxic") {
		t.Error("export missing reply content")
	}
}
