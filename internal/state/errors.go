// Package state implements the application's in-memory state layer: the
// authenticated session, the chatroom directory, and the per-room
// conversation logs with their pagination cursors and simulated peer
// replies. Every mutation is snapshotted through the storage adapter; the
// components are rehydrated from it at process start.
//
// This file centralizes the error taxonomy of the state layer so callers can
// branch on stable values. Translation into HTTP status codes happens at the
// handler layer.
package state

import "fmt"

// ValidationError reports malformed input. It is always returned
// synchronously, before any simulated network delay begins.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Sentinel errors returned by state operations.
var (
	// ErrChatroomNotFound indicates an operation against a chatroom id
	// that no longer exists. No partial mutation is performed.
	ErrChatroomNotFound = errorString("chatroom not found")

	// ErrCodeRejected indicates the verification code was refused by the
	// configured Verifier.
	ErrCodeRejected = errorString("verification code rejected")
)

// errorString is a comparable error usable as a package-level sentinel.
type errorString string

func (e errorString) Error() string { return string(e) }
