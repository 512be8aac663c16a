// ABOUTME: Error taxonomy shared across store, ledger, and state machine
// ABOUTME: Typed errors matched with errors.Is/errors.As at call sites
package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a contact or history entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity is returned when a store or ledger write failed
	// mid-transaction. The whole operation is rolled back.
	ErrIntegrity = errors.New("integrity failure")
)

// ValidationError reports malformed input to a field edit. It is reported to
// the caller and never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports an attempted transition on a contact already moved to
// a terminal state. Local state wins; nothing is overwritten.
type ConflictError struct {
	ContactID string
	Status    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("contact %s already in terminal status %s", e.ContactID, e.Status)
}

// TransientRemoteError reports a telephony or calendar call that failed due
// to connectivity or auth. Retried via the operation queue, never fatal to
// the local state machine.
type TransientRemoteError struct {
	Op  string
	Err error
}

func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *TransientRemoteError) Unwrap() error { return e.Err }
