// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the salus CLI.
//
// Interactive terminals get markdown rendering and color; piped output
// stays plain so it can be processed by other tools.
package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultTerminalWidth is used when width detection fails.
const DefaultTerminalWidth = 80

var (
	colorOnce    sync.Once
	colorEnabled bool
)

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStdinTTY reports whether stdin is a terminal. False means input is
// piped and can be read as the question text.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// TerminalWidth returns the stdout terminal width, or the default when
// stdout is not a terminal.
func TerminalWidth() int {
	if !IsStdoutTTY() {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return width
}

// ColorEnabled reports whether colored output should be used. Honors
// NO_COLOR and requires a TTY with some color support.
func ColorEnabled() bool {
	colorOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorEnabled = false
			return
		}
		colorEnabled = IsStdoutTTY() && termenv.ColorProfile() != termenv.Ascii
	})
	return colorEnabled
}
