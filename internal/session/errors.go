package session

import "errors"

var (
	// ErrActionTaken rejects a second user turn on a single-shot action
	// session.
	ErrActionTaken = errors.New("action already taken")

	// ErrMessageNotFound is returned when a message id does not locate an
	// assistant message in the source session.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidInput rejects malformed requests: no-op updates and
	// incompatible prompt/session-type pairings.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuotaExceeded is raised when a user's stored message count reaches
	// the plan limit.
	ErrQuotaExceeded = errors.New("message quota exceeded")
)
