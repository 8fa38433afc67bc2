// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package salus provides the HTTP client for the Dr. Salus AI service.
//
// The service exposes a small REST surface:
//
//   - POST /api/v1/chat: send a message, receive the reply
//   - POST /api/v1/session/clear: drop server-side session state
//   - GET /health: liveness probe
//
// Chat requests carry the message, an opaque session id, and the prior
// conversation turns. The client makes exactly one attempt per call;
// failure handling (the fallback turn) belongs to the conversation
// controller, not the transport.
package salus
