// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the chat orchestrator: the active thread, its
// messages, pending attachments, and the send/receive state machine.
//
// # State Machine
//
//	Idle --Begin--> Sending --Complete(answer)--> Idle (+assistant message)
//	                        --Complete(error)---> Idle (+error message)
//
// Begin and Complete are split so a UI can run the HTTP call off its
// event loop (a Bubble Tea command) and report back. Send does both for
// synchronous callers.
//
// # View Lifetimes
//
// Switching threads, starting a new chat, and Reset each start a new view
// lifetime: the previous context is cancelled and the epoch is bumped.
// Results tagged with an older epoch are discarded with OutcomeStale and
// never touch state.
package chat
