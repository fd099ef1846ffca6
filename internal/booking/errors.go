// Package booking implements the transaction core that turns temporary
// resource holds into durable bookings.  It orchestrates the lock store,
// the availability checker and the booking record store behind a small
// state machine: Pending -> Confirmed | Cancelled | Failed.
package booking

import (
    "errors"
    "fmt"
    "strings"
)

// Sentinel errors for caller mistakes.  Handlers translate these into
// HTTP status codes; none of them are retried automatically.
var (
    // ErrInvalidState is returned when an operation is attempted on a
    // transaction that is not in the required state, e.g. confirming a
    // transaction that was already cancelled.
    ErrInvalidState = errors.New("transaction not in required state")

    // ErrUnauthorized is returned when the acting owner does not match
    // the transaction's owner.  It deliberately carries no information
    // about who the true owner is.
    ErrUnauthorized = errors.New("unauthorized")

    // ErrUnknownTransaction is returned when no transaction exists for
    // the given identifier.
    ErrUnknownTransaction = errors.New("unknown transaction")
)

// ResourceUnavailableError reports resources that are already
// confirmed-booked or locked by another actor.  Recoverable: the caller
// can pick different resources.
type ResourceUnavailableError struct {
    ResourceIDs []string
}

func (e *ResourceUnavailableError) Error() string {
    return fmt.Sprintf("resources unavailable: %s", strings.Join(e.ResourceIDs, ", "))
}

// LockContentionError reports that an atomic batch acquire lost the race
// for the listed resources.  Recoverable by retrying, possibly against a
// different resource set; the core never retries it itself.
type LockContentionError struct {
    ResourceIDs []string
}

func (e *LockContentionError) Error() string {
    return fmt.Sprintf("lock contention on: %s", strings.Join(e.ResourceIDs, ", "))
}

// LockExpiredError reports holds that lapsed before confirmation.  The
// caller must restart the booking flow from the beginning.
type LockExpiredError struct {
    ResourceIDs []string
}

func (e *LockExpiredError) Error() string {
    return fmt.Sprintf("locks expired on: %s", strings.Join(e.ResourceIDs, ", "))
}

// BackingStoreError wraps a failure of the lock store or the booking
// record store.  Transient by definition; the lock store retries once
// internally before this surfaces.
type BackingStoreError struct {
    Op  string
    Err error
}

func (e *BackingStoreError) Error() string {
    return fmt.Sprintf("backing store failure during %s: %v", e.Op, e.Err)
}

func (e *BackingStoreError) Unwrap() error { return e.Err }
