// Package lock provides expiring, per-resource exclusive claims scoped to
// a booking context.  Two interchangeable implementations exist: an
// in-memory striped-mutex store for single-instance deployments and a
// Redis-backed store for multi-instance deployments.  Callers choose one
// at composition time; the rest of the core only sees the Store interface.
package lock

import (
    "context"
    "errors"
    "time"

    "github.com/iliyamo/booking-core/internal/model"
)

// DefaultTTL is the soft-hold window applied when callers pass a zero
// duration.  Ten minutes matches the hold window used by the booking
// frontends.
const DefaultTTL = 600 * time.Second

// ErrStoreUnavailable wraps failures reaching the backing store.  Lock
// acquisition fails closed on it: a store that cannot be reached never
// grants a claim.
var ErrStoreUnavailable = errors.New("lock store unavailable")

// Store is the single source of truth for which actor currently holds a
// resource within a scope.  All operations are non-blocking: an acquire
// that cannot succeed immediately returns false rather than waiting.
// Expired claims must never be observed as active by any read.
type Store interface {
    // TryAcquire claims (scopeID, resourceID) for ownerID with the given
    // TTL.  Re-acquiring a claim already held by the same owner refreshes
    // its expiry and succeeds.  Returns false without side effects when
    // the resource is actively held by a different owner.
    TryAcquire(ctx context.Context, scopeID, resourceID, ownerID string, ttl time.Duration) (bool, error)

    // TryAcquireBatch claims every resource in resourceIDs or none of
    // them.  On failure it reports the resources that could not be
    // claimed and guarantees that nothing acquired during this call
    // remains held.
    TryAcquireBatch(ctx context.Context, scopeID string, resourceIDs []string, ownerID string, ttl time.Duration) (bool, []string, error)

    // Release removes the claim on (scopeID, resourceID) only when it is
    // currently held by ownerID.  Returns false when no such claim exists.
    Release(ctx context.Context, scopeID, resourceID, ownerID string) (bool, error)

    // ReleaseBatch releases each resource best-effort; claims that are
    // missing, expired or held by someone else are skipped silently.
    ReleaseBatch(ctx context.Context, scopeID string, resourceIDs []string, ownerID string) error

    // IsLocked reports whether an active claim exists on the resource.
    // A non-empty excludingOwnerID restricts the answer to claims held
    // by a different owner, so a caller can ignore its own hold.
    IsLocked(ctx context.Context, scopeID, resourceID, excludingOwnerID string) (bool, error)

    // Holder returns the owner of the active claim on the resource, if
    // any.  Used by confirmation re-validation and diagnostics.
    Holder(ctx context.Context, scopeID, resourceID string) (string, bool, error)
}

// Lister is implemented by stores that can enumerate the active claims
// within a scope for diagnostics.
type Lister interface {
    ListScope(ctx context.Context, scopeID string) ([]model.Lock, error)
}
