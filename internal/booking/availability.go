package booking

import (
    "context"

    "github.com/iliyamo/booking-core/internal/lock"
    "github.com/iliyamo/booking-core/internal/model"
)

// RecordStore is the durable collaborator that persists confirmed
// bookings.  The core needs only creation, lookup, the per-scope
// conflict set, and the status transition used by compensating
// cancellation.
type RecordStore interface {
    // CreateBooking durably writes the booking header and its resource
    // associations as a single atomic unit.
    CreateBooking(ctx context.Context, b *model.Booking) error

    // GetBooking returns a booking by id, or repository.ErrBookingNotFound.
    GetBooking(ctx context.Context, id string) (*model.Booking, error)

    // ListConfirmedResourceIDs returns the resource ids committed by
    // CONFIRMED bookings in the scope.
    ListConfirmedResourceIDs(ctx context.Context, scopeID string) ([]string, error)

    // UpdateBookingStatus transitions a booking's status, used by the
    // compensating cancellation of an already-confirmed booking.
    UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error
}

// Registry exposes the resource catalog to the core.  The lock store is
// deliberately identifier-agnostic; existence checks happen here.
type Registry interface {
    // MissingResources returns the ids from resourceIDs that have no
    // catalog entry in the scope.
    MissingResources(ctx context.Context, scopeID string, resourceIDs []string) ([]string, error)

    // Categories returns the category of each known resource, keyed by id.
    Categories(ctx context.Context, scopeID string, resourceIDs []string) (map[string]model.ResourceCategory, error)
}

// Checker answers "are these resources bookable right now for this
// actor" by combining the confirmed-booking conflict set with live lock
// state.  It is a pure read with no side effects and takes no locks
// itself; callers must still go through TryAcquireBatch, whose atomicity
// is what actually guarantees correctness.  The check is advisory.
type Checker struct {
    locks    lock.Store
    records  RecordStore
    registry Registry // may be nil when no catalog is wired
}

// NewChecker builds an availability checker.  registry may be nil.
func NewChecker(locks lock.Store, records RecordStore, registry Registry) *Checker {
    return &Checker{locks: locks, records: records, registry: registry}
}

// CheckAvailability reports whether every resource is free for the
// requesting owner and lists the ones that are not.  A resource is
// unavailable when it has no catalog entry, is committed by a confirmed
// booking, or is actively locked by a different owner.  Both the
// confirmed check and the lock check always run; a resource can be free
// of locks yet permanently booked, or the reverse.
func (c *Checker) CheckAvailability(ctx context.Context, scopeID string, resourceIDs []string, requestingOwnerID string) (bool, []string, error) {
    unavailable := make(map[string]struct{})

    if c.registry != nil {
        missing, err := c.registry.MissingResources(ctx, scopeID, resourceIDs)
        if err != nil {
            return false, nil, &BackingStoreError{Op: "registry lookup", Err: err}
        }
        for _, rid := range missing {
            unavailable[rid] = struct{}{}
        }
    }

    confirmed, err := c.records.ListConfirmedResourceIDs(ctx, scopeID)
    if err != nil {
        return false, nil, &BackingStoreError{Op: "confirmed-set read", Err: err}
    }
    confirmedSet := make(map[string]struct{}, len(confirmed))
    for _, rid := range confirmed {
        confirmedSet[rid] = struct{}{}
    }

    for _, rid := range resourceIDs {
        if _, ok := confirmedSet[rid]; ok {
            unavailable[rid] = struct{}{}
            continue
        }
        locked, err := c.locks.IsLocked(ctx, scopeID, rid, requestingOwnerID)
        if err != nil {
            return false, nil, &BackingStoreError{Op: "lock read", Err: err}
        }
        if locked {
            unavailable[rid] = struct{}{}
        }
    }

    if len(unavailable) == 0 {
        return true, nil, nil
    }
    // Preserve the caller's ordering in the reported ids.
    ids := make([]string, 0, len(unavailable))
    for _, rid := range resourceIDs {
        if _, ok := unavailable[rid]; ok {
            ids = append(ids, rid)
        }
    }
    return false, ids, nil
}
