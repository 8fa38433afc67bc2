// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Saved conversation management for the salus CLI.
//
// Command: sessions [list|show|search|export|delete|clear]
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/salus-tui/internal/config"
	"github.com/jeranaias/salus-tui/internal/storage"
	"github.com/jeranaias/salus-tui/internal/util"
)

// HandleSessionsCommand dispatches the sessions subcommands.
func HandleSessionsCommand(args Args) error {
	cfg := config.Global()
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}
	defer store.Close()

	switch args.Subcommand {
	case "", "list":
		return sessionsList(store)
	case "show":
		return sessionsShow(store, positionalArg(args, 1))
	case "search":
		return sessionsSearch(store, strings.Join(args.Raw[1:], " "))
	case "export":
		return sessionsExport(store, positionalArg(args, 1), args)
	case "delete":
		return sessionsDelete(store, positionalArg(args, 1), args.Confirm)
	case "clear":
		return sessionsClear(store, args.Confirm)
	default:
		return fmt.Errorf("unknown sessions subcommand: %s", args.Subcommand)
	}
}

// positionalArg returns the nth positional argument from Raw, or "".
func positionalArg(args Args, n int) string {
	if n >= len(args.Raw) {
		return ""
	}
	return args.Raw[n]
}

func sessionsList(store *storage.Store) error {
	sessions, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No saved conversations.")
		return nil
	}
	fmt.Print(storage.FormatSessionList(sessions))
	return nil
}

func sessionsShow(store *storage.Store, id string) error {
	if id == "" {
		return fmt.Errorf("usage: salus sessions show <id>")
	}
	conv, err := store.Load(id)
	if err != nil {
		return err
	}
	fmt.Print(renderReply(storage.ExportMarkdown(conv)))
	return nil
}

func sessionsSearch(store *storage.Store, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("usage: salus sessions search <term>")
	}

	sessions, err := store.Search(query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	// Fall back to message content when titles and previews miss.
	if len(sessions) == 0 {
		sessions, err = store.SearchTurns(query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
	}

	if len(sessions) == 0 {
		fmt.Printf("No conversations matching %q.\n", query)
		return nil
	}
	fmt.Print(storage.FormatSessionList(sessions))
	return nil
}

func sessionsExport(store *storage.Store, id string, args Args) error {
	if id == "" {
		return fmt.Errorf("usage: salus sessions export <id> [--out FILE]")
	}
	conv, err := store.Load(id)
	if err != nil {
		return err
	}

	path := args.Out
	if path == "" {
		path = id + ".md"
	}

	markdown := storage.ExportMarkdown(conv)
	if err := util.AtomicWriteFile(path, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Exported %q to %s\n", conv.GetTitle(), path)
	return nil
}

func sessionsDelete(store *storage.Store, id string, confirm bool) error {
	if id == "" {
		return fmt.Errorf("usage: salus sessions delete <id> --confirm")
	}
	if !confirm {
		fmt.Fprintln(os.Stderr, "Deletion is permanent. Re-run with --confirm.")
		return fmt.Errorf("missing --confirm")
	}
	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted conversation %s\n", id)
	return nil
}

func sessionsClear(store *storage.Store, confirm bool) error {
	if !confirm {
		fmt.Fprintln(os.Stderr, "This deletes ALL conversations. Re-run with --confirm.")
		return fmt.Errorf("missing --confirm")
	}
	count, err := store.Count()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Printf("Deleted %d conversation(s)\n", count)
	return nil
}
