// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for salus.
package cli

import (
	"fmt"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdServe
	CmdSessions
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	URL     string // Service base URL override

	// Command-specific
	Query      string // Question text for ask
	Subcommand string
	Port       int    // Port for serve
	Confirm    bool   // Destructive sessions subcommands require --confirm
	Out        string // Output path for sessions export

	// Raw args (remaining after the command word)
	Raw []string
}

const usageText = `salus - Dr. Salus AI pet care assistant for the terminal

Salus is a terminal client for the Dr. Salus AI veterinary assistant.

It provides:
  - Interactive chat with message editing and reply versions
  - Voice input where speech recognition is available
  - Emergency guidance detection for urgent symptoms
  - Local conversation history with search and export

Usage:
  salus                      Start the chat TUI (default)
  salus ask "question"       Ask a single question and exit
  salus serve                Run the development stub server
  salus sessions [subcmd]    Manage saved conversations
  salus version, -v          Show version information
  salus help, -h             Show this help

Ask:
  salus ask "My dog keeps scratching his ears"
    --url URL                Service base URL (default from config)
    --json                   Output the raw reply as JSON
    --quiet                  Reply text only, no status output

Serve:
  salus serve                Start the stub server on port 8000
    --port N                 Listen port

Sessions:
  salus sessions             List saved conversations
  salus sessions show <id>   Print a conversation as markdown
  salus sessions search <t>  Search titles and previews
  salus sessions export <id> Write a conversation to a markdown file
    --out FILE               Output path (default <id>.md)
  salus sessions delete <id> Delete a conversation
    --confirm                Required confirmation flag
  salus sessions clear       Delete all conversations
    --confirm                Required confirmation flag

Environment:
  SALUS_URL                  Service base URL
  SALUS_TIMEOUT              Request timeout in seconds
  SALUS_THEME                dark, light, or auto
  SALUS_VOICE                Enable voice input (1/true)
  SALUS_DB                   Conversation database path

Config file: ~/.salus/config.toml
`

// Parse parses CLI arguments into a command and its arguments.
func Parse(argv []string) (Command, Args) {
	args := Args{Port: 0}

	if len(argv) == 0 {
		return CmdTUI, args
	}

	command := CmdTUI
	rest := argv

	switch argv[0] {
	case "ask":
		command = CmdAsk
		rest = argv[1:]
	case "serve":
		command = CmdServe
		rest = argv[1:]
	case "sessions", "session":
		command = CmdSessions
		rest = argv[1:]
	case "version", "-v", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		// Unknown word starts the TUI unless it looks like a flag typo.
		if strings.HasPrefix(argv[0], "-") {
			return CmdHelp, args
		}
	}

	parser := NewArgParser(rest)
	args.Quiet = parser.BoolFlag("quiet") || parser.BoolFlag("q")
	args.Verbose = parser.BoolFlag("verbose")
	args.JSON = parser.BoolFlag("json")
	args.Confirm = parser.BoolFlag("confirm")
	args.URL = parser.Flag("url")
	args.Out = parser.Flag("out")
	args.Port = parser.FlagIntOrDefault("port", 0)
	args.Subcommand = parser.Subcommand()
	args.Raw = parser.PositionalFrom(0)

	if command == CmdAsk {
		args.Query = strings.Join(parser.PositionalFrom(0), " ")
	}

	return command, args
}

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// HandleVersionCommand prints version information.
func HandleVersionCommand() error {
	fmt.Printf("salus %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
