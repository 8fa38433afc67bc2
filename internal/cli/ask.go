// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command for the salus CLI.
//
// Command: ask [question]
//
// Examples:
//   salus ask "Why is my dog scratching?"
//   salus ask --json "What vaccines does a puppy need?"
//   echo "My cat stopped eating" | salus ask
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/salus-tui/internal/assistant"
	"github.com/jeranaias/salus-tui/internal/config"
	"github.com/jeranaias/salus-tui/internal/salus"
	"github.com/jeranaias/salus-tui/internal/ui/styles"
)

var (
	askNoticeStyle    = lipgloss.NewStyle().Foreground(styles.Teal)
	askEmergencyStyle = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	askErrorStyle     = lipgloss.NewStyle().Foreground(styles.Rose)
)

// askJSONOutput is the --json output shape.
type askJSONOutput struct {
	Question  string `json:"question"`
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
	Emergency bool   `json:"emergency"`
	TimeMs    int64  `json:"time_ms"`
}

// renderReply renders markdown on a TTY, plain text otherwise.
func renderReply(content string) string {
	if !IsStdoutTTY() {
		return content
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

// HandleAskCommand sends a single question to the service and prints
// the reply.
func HandleAskCommand(args Args) error {
	cfg := config.Global()

	question := strings.TrimSpace(args.Query)
	if question == "" && !IsStdinTTY() {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err == nil {
			question = strings.TrimSpace(string(data))
		}
	}
	if question == "" {
		return fmt.Errorf("no question provided. Usage: salus ask \"your question\"")
	}

	baseURL := args.URL
	if baseURL == "" {
		baseURL = cfg.Service.BaseURL
	}
	client := salus.NewClient(baseURL).
		WithTimeout(time.Duration(cfg.Service.TimeoutSecs) * time.Second)

	if !args.Quiet && !args.JSON {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			askNoticeStyle.Render("Asking Dr. Salus..."), baseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Service.TimeoutSecs)*time.Second)
	defer cancel()

	start := time.Now()
	reply, err := client.Chat(ctx, salus.ChatRequest{Message: question})
	if err != nil {
		if args.JSON {
			json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n", askErrorStyle.Render("[Error]"), err)
		}
		return err
	}

	emergency := assistant.DetectEmergency(reply.Response)

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(askJSONOutput{
			Question:  question,
			Response:  reply.Response,
			SessionID: reply.SessionID,
			Emergency: emergency,
			TimeMs:    time.Since(start).Milliseconds(),
		})
	}

	if emergency && !args.Quiet {
		fmt.Fprintln(os.Stderr, askEmergencyStyle.Render(
			"[!] This may be an emergency. Contact a veterinary clinic immediately."))
	}

	fmt.Print(renderReply(reply.Response))
	if !strings.HasSuffix(reply.Response, "\n") {
		fmt.Println()
	}
	return nil
}
