package model

import "time"

// Lock represents a transient exclusive claim on one resource by one
// owner within a scope.  Locks always expire; an expired lock must be
// treated as absent by every reader.  At most one active lock may exist
// for a given (scope, resource) pair at any instant.
//
// Fields:
//  ScopeID    – booking context the claim belongs to.
//  ResourceID – resource being claimed.
//  OwnerID    – actor on whose behalf the hold was taken.
//  AcquiredAt – when the claim was created or last refreshed.
//  ExpiresAt  – instant after which the claim is inactive.
type Lock struct {
    ScopeID    string    // lock scope
    ResourceID string    // locked resource
    OwnerID    string    // holding actor
    AcquiredAt time.Time // acquisition or refresh time
    ExpiresAt  time.Time // expiry instant
}

// Active reports whether the lock is still in force at the given instant.
func (l Lock) Active(now time.Time) bool {
    return now.Before(l.ExpiresAt)
}
