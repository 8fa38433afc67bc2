// salus - Dr. Salus AI pet care assistant for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/salus-tui/internal/assistant"
	"github.com/jeranaias/salus-tui/internal/cli"
	"github.com/jeranaias/salus-tui/internal/config"
	"github.com/jeranaias/salus-tui/internal/salus"
	"github.com/jeranaias/salus-tui/internal/session"
	"github.com/jeranaias/salus-tui/internal/storage"
	"github.com/jeranaias/salus-tui/internal/ui/chat"
	"github.com/jeranaias/salus-tui/internal/ui/styles"
	"github.com/jeranaias/salus-tui/internal/voice"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	switch cmd {
	case cli.CmdAsk:
		exitOn(cli.HandleAskCommand(args))
	case cli.CmdServe:
		exitOn(cli.HandleServeCommand(args))
	case cli.CmdSessions:
		exitOn(cli.HandleSessionsCommand(args))
	case cli.CmdVersion:
		exitOn(cli.HandleVersionCommand())
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		runTUI(args)
	}
}

// exitOn reports a command error and exits non-zero.
func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI wires the conversation engine and starts the chat interface.
func runTUI(args cli.Args) {
	cfg := config.Global()

	// CLI flags override config
	if args.URL != "" {
		cfg.Service.BaseURL = args.URL
	}

	client := salus.NewClient(cfg.Service.BaseURL).
		WithTimeout(time.Duration(cfg.Service.TimeoutSecs) * time.Second)

	sessMgr := session.NewManager(session.Config{
		AutoSaveEnabled:  cfg.Storage.AutoSave,
		AutoSaveInterval: time.Duration(cfg.Storage.AutoSaveIntervalSecs) * time.Second,
	})

	controller := assistant.NewController(client, sessMgr)

	// Conversation persistence. A storage failure degrades to an
	// in-memory session rather than blocking startup.
	var store *storage.Store
	if dbPath, err := cfg.DatabasePath(); err == nil {
		store, err = storage.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: conversation history unavailable: %v\n", err)
			store = nil
		}
	}
	if store != nil {
		defer store.Close()
		if conv, err := store.LoadLatest(); err == nil && conv != nil {
			_ = controller.RestoreConversation(conv)
		}
	}

	// No speech backend ships yet; the adapter reports unsupported and
	// the UI surfaces a capability notice on Ctrl+V.
	voiceAdapter := voice.NewUnsupported()

	m := chat.New(styles.NewTheme(), controller, store, voiceAdapter, client, cfg)

	// Hot-reload config edits while the TUI runs.
	if path, err := config.ConfigPath(); err == nil {
		if w, werr := config.NewWatcher(path, 0, nil); werr == nil {
			if werr := w.Watch(); werr == nil {
				defer w.Close()
			}
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running salus: %v\n", err)
		os.Exit(1)
	}
}
