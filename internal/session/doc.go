// Package session implements conversation state management for Copilot.
//
// A conversation is stored as one SessionState document: ordered messages,
// the prompt it is bound to, fork lineage and pin/title metadata. The
// package layers three pieces over that record:
//
//   - Store: the persistence interface (create/get/update/fork/revert/
//     cleanup/count/list) over the JSON file storage backend.
//   - ChatSession: the in-memory context-window manager bound to one loaded
//     session.
//   - Service: lifecycle orchestration, prompt/scope policy, quota, per
//     session locking and background title generation.
//
// # Acquire / use / release
//
// A ChatSession is a scoped resource. Service.Get acquires the session's
// advisory lock and loads the full history; Release persists messages
// staged since acquisition and unlocks:
//
//	chat, err := svc.Get(ctx, sessionID)
//	if err != nil {
//	    return err
//	}
//	defer chat.Release(ctx)
//
//	if err := chat.Push(types.ChatMessage{Role: types.RoleUser, Content: input}); err != nil {
//	    return err
//	}
//	finished := chat.Finish(nil)
//	// hand finished to a provider, push the reply, Release persists both
//
// Release persists the staged suffix exactly once, even on early return or
// error, and enqueues title generation for untitled non-action sessions.
//
// # Context windowing
//
// Finish assembles the rendered prompt template plus the most recent
// contiguous suffix of the conversation whose estimated token cost fits
// under the prompt's budget (the prompt's configured max tokens, or
// DefaultMaxTokenSize). Messages beyond the budget are silently dropped.
// Sessions bound to an action prompt never carry history; they render with
// only the latest message.
//
// # Errors
//
// Lookup misses surface storage.ErrNotFound. The package adds
// ErrActionTaken (second user turn on an action session),
// ErrMessageNotFound (fork point or revert target missing), ErrInvalidInput
// (no-op updates, incompatible prompt/scope pairing) and ErrQuotaExceeded.
// All are sentinels; match with errors.Is.
package session
