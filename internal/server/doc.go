// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements a development stand-in for the Dr. Salus AI
// backend.
//
// Endpoints:
//   - POST /api/v1/chat          - chat, enveloped {success, data, error}
//   - POST /api/v1/session/clear - drop server-side session state
//   - GET  /health               - health probe
//
// Replies come from a keyword rule table, with the same behavior shape as
// the real service: emergency escalation first, off-topic deflection, then
// topic rules. The server binds localhost only and is started with
// `salus serve`.
package server
