// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Development stub server command for the salus CLI.
//
// Command: serve [--port N]
//
// Runs the rule-based stand-in for the Dr. Salus backend so the TUI can
// be developed and demoed without the real AI service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/salus-tui/internal/server"
)

// shutdownTimeout bounds graceful shutdown on interrupt.
const shutdownTimeout = 5 * time.Second

// HandleServeCommand runs the stub server until interrupted.
func HandleServeCommand(args Args) error {
	srv := server.NewServer(args.Port)

	if !args.Quiet {
		fmt.Printf("Dr. Salus dev stub listening on http://127.0.0.1:%d\n", srv.Port())
		fmt.Println("Press Ctrl+C to stop.")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		if !args.Quiet {
			fmt.Println("Server stopped.")
		}
		return nil
	}
}
