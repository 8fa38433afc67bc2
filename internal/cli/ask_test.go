// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// what was written.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	fnErr := fn()
	w.Close()
	os.Stdout = old

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured output: %v", err)
	}
	return string(data), fnErr
}

func newChatStub(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w,
			`{"success":true,"data":{"response":%q,"session_id":"s1","timestamp":"2026-01-01T00:00:00Z"}}`,
			response)
	}))
}

// TestHandleAskCommand_JSONMarksEmergency checks that the ask command
// flags emergency replies the same way the conversation engine does,
// including case-insensitive matching.
func TestHandleAskCommand_JSONMarksEmergency(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		emergency bool
	}{
		{"uppercase marker", "This is an EMERGENCY! See a vet now.", true},
		{"mixed case marker", "Treat this as an Emergency situation.", true},
		{"routine reply", "Two meals a day is fine for most adult dogs.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newChatStub(t, tt.response)
			defer srv.Close()

			out, err := captureStdout(t, func() error {
				return HandleAskCommand(Args{Query: "checkup", URL: srv.URL, JSON: true, Quiet: true})
			})
			if err != nil {
				t.Fatalf("HandleAskCommand: %v", err)
			}

			var got askJSONOutput
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("parse output %q: %v", out, err)
			}
			if got.Emergency != tt.emergency {
				t.Errorf("emergency = %t, want %t", got.Emergency, tt.emergency)
			}
			if got.Response != tt.response {
				t.Errorf("response = %q, want %q", got.Response, tt.response)
			}
		})
	}
}
