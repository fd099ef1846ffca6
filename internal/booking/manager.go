package booking

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/booking-core/internal/lock"
    "github.com/iliyamo/booking-core/internal/model"
    "github.com/iliyamo/booking-core/internal/repository"
)

// Manager orchestrates "lock -> validate -> persist -> release to
// permanent" as one logical unit.  It owns BookingTransaction objects
// while they are Pending; resolved transactions are retained for
// inspection but never transition again.
//
// When two actors race for the same resource set, whichever batch
// acquire observes all resources free first wins; the loser gets
// LockContentionError and must choose how to proceed.  No queueing or
// fairness is provided.
type Manager struct {
    locks    lock.Store
    records  RecordStore
    checker  *Checker
    registry Registry
    ttl      time.Duration
    now      func() time.Time

    mu  sync.Mutex
    txs map[string]*managedTx
}

// managedTx wraps a transaction with its own mutex so that a Confirm
// and a Cancel racing on the same transaction serialize without holding
// the manager-wide map mutex across store I/O.
type managedTx struct {
    mu sync.Mutex
    tx model.BookingTransaction
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithHoldTTL overrides the soft-hold window (default lock.DefaultTTL).
func WithHoldTTL(ttl time.Duration) ManagerOption {
    return func(m *Manager) {
        if ttl > 0 {
            m.ttl = ttl
        }
    }
}

// WithClock overrides the manager's clock; used by tests.
func WithClock(now func() time.Time) ManagerOption {
    return func(m *Manager) { m.now = now }
}

// NewManager builds a transaction manager on top of a lock store and a
// booking record store.  registry may be nil when no catalog is wired;
// unknown resource ids are then only caught by the collaborators.
func NewManager(locks lock.Store, records RecordStore, registry Registry, opts ...ManagerOption) *Manager {
    m := &Manager{
        locks:    locks,
        records:  records,
        checker:  NewChecker(locks, records, registry),
        registry: registry,
        ttl:      lock.DefaultTTL,
        now:      time.Now,
        txs:      make(map[string]*managedTx),
    }
    for _, opt := range opts {
        opt(m)
    }
    return m
}

// Checker exposes the manager's availability checker for read-only
// callers such as the HTTP layer.
func (m *Manager) Checker() *Checker { return m.checker }

// HoldTTL returns the soft-hold window applied to new bookings, so the
// transport layer can report the expiry instant to clients.
func (m *Manager) HoldTTL() time.Duration { return m.ttl }

// StartBooking pre-checks availability, atomically acquires holds on
// every requested resource and creates a Pending transaction.  On any
// failure no transaction is created and no lock is left behind (the
// batch acquire rolls itself back).  The caller must Confirm or Cancel
// before the hold TTL lapses; afterwards the transaction is orphaned
// and reported as Failed.
//
// A zero priceCents asks the manager to quote the price from the
// catalog's resource categories.
func (m *Manager) StartBooking(ctx context.Context, scopeID, ownerID string, resourceIDs []string, priceCents uint32) (*model.BookingTransaction, error) {
    ids := dedupe(resourceIDs)
    if len(ids) == 0 {
        return nil, &ResourceUnavailableError{ResourceIDs: nil}
    }

    ok, unavailable, err := m.checker.CheckAvailability(ctx, scopeID, ids, ownerID)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, &ResourceUnavailableError{ResourceIDs: unavailable}
    }

    acquired, failed, err := m.locks.TryAcquireBatch(ctx, scopeID, ids, ownerID, m.ttl)
    if err != nil {
        return nil, &BackingStoreError{Op: "batch acquire", Err: err}
    }
    if !acquired {
        return nil, &LockContentionError{ResourceIDs: failed}
    }

    if priceCents == 0 && m.registry != nil {
        categories, err := m.registry.Categories(ctx, scopeID, ids)
        if err != nil {
            // Quoting failed; drop the fresh holds rather than open a
            // zero-priced transaction.
            _ = m.locks.ReleaseBatch(ctx, scopeID, ids, ownerID)
            return nil, &BackingStoreError{Op: "price quoting", Err: err}
        }
        priceCents = QuotePrice(categories, ids)
    }

    tx := model.BookingTransaction{
        ID:          uuid.NewString(),
        OwnerID:     ownerID,
        ScopeID:     scopeID,
        ResourceIDs: ids,
        Status:      model.TxPending,
        PriceCents:  priceCents,
        CreatedAt:   m.now(),
    }
    m.mu.Lock()
    m.txs[tx.ID] = &managedTx{tx: tx}
    m.mu.Unlock()

    out := tx
    out.ResourceIDs = append([]string(nil), tx.ResourceIDs...)
    return &out, nil
}

// Confirm finalises a Pending transaction owned by ownerID.  Every hold
// is re-verified first: any resource no longer held by the owner means
// the TTL lapsed, the transaction transitions to Failed and no booking
// is written.  On success the booking record is persisted atomically,
// the now-redundant lock entries are deleted (the confirmed set is the
// source of truth from here on) and the transaction becomes Confirmed.
//
// A backing-store failure while persisting leaves the transaction
// Pending so the caller may retry Confirm while the holds are alive.
func (m *Manager) Confirm(ctx context.Context, txID, ownerID string) (*model.Booking, error) {
    mt, err := m.lookup(txID, ownerID)
    if err != nil {
        return nil, err
    }
    mt.mu.Lock()
    defer mt.mu.Unlock()

    if mt.tx.Status != model.TxPending {
        return nil, ErrInvalidState
    }

    var expired []string
    for _, rid := range mt.tx.ResourceIDs {
        holder, held, err := m.locks.Holder(ctx, mt.tx.ScopeID, rid)
        if err != nil {
            return nil, &BackingStoreError{Op: "hold re-validation", Err: err}
        }
        if !held || holder != ownerID {
            expired = append(expired, rid)
        }
    }
    if len(expired) > 0 {
        // Drop whatever holds remain so the resources return to the pool.
        _ = m.locks.ReleaseBatch(ctx, mt.tx.ScopeID, mt.tx.ResourceIDs, ownerID)
        mt.tx.Status = model.TxFailed
        return nil, &LockExpiredError{ResourceIDs: expired}
    }

    b := &model.Booking{
        ID:          uuid.NewString(),
        OwnerID:     ownerID,
        ScopeID:     mt.tx.ScopeID,
        ResourceIDs: append([]string(nil), mt.tx.ResourceIDs...),
        Status:      model.BookingConfirmed,
        PriceCents:  mt.tx.PriceCents,
        CreatedAt:   m.now(),
    }
    if err := m.records.CreateBooking(ctx, b); err != nil {
        return nil, &BackingStoreError{Op: "booking persist", Err: err}
    }

    _ = m.locks.ReleaseBatch(ctx, mt.tx.ScopeID, mt.tx.ResourceIDs, ownerID)
    mt.tx.Status = model.TxConfirmed
    mt.tx.BookingID = b.ID
    return b, nil
}

// Cancel releases all holds of a Pending transaction and transitions it
// to Cancelled.  Cancelling a Confirmed transaction is rejected with
// ErrInvalidState; a confirmed booking is undone only through
// CancelConfirmedBooking, which carries the compensating semantics.
func (m *Manager) Cancel(ctx context.Context, txID, ownerID string) (bool, error) {
    mt, err := m.lookup(txID, ownerID)
    if err != nil {
        return false, err
    }
    mt.mu.Lock()
    defer mt.mu.Unlock()

    if mt.tx.Status != model.TxPending {
        return false, ErrInvalidState
    }
    if err := m.locks.ReleaseBatch(ctx, mt.tx.ScopeID, mt.tx.ResourceIDs, ownerID); err != nil {
        return false, &BackingStoreError{Op: "hold release", Err: err}
    }
    mt.tx.Status = model.TxCancelled
    return true, nil
}

// Get returns the caller's view of a transaction.  A Pending
// transaction whose holds have all lapsed is reported (and recorded) as
// Failed: the locks expired silently and the booking can no longer be
// confirmed.
func (m *Manager) Get(ctx context.Context, txID, ownerID string) (*model.BookingTransaction, error) {
    mt, err := m.lookup(txID, ownerID)
    if err != nil {
        return nil, err
    }
    mt.mu.Lock()
    defer mt.mu.Unlock()

    if mt.tx.Status == model.TxPending {
        orphaned := false
        for _, rid := range mt.tx.ResourceIDs {
            holder, held, err := m.locks.Holder(ctx, mt.tx.ScopeID, rid)
            if err != nil {
                return nil, &BackingStoreError{Op: "hold inspection", Err: err}
            }
            if !held || holder != ownerID {
                orphaned = true
                break
            }
        }
        if orphaned {
            mt.tx.Status = model.TxFailed
        }
    }

    out := mt.tx
    out.ResourceIDs = append([]string(nil), mt.tx.ResourceIDs...)
    return &out, nil
}

// CancelConfirmedBooking is the compensating cancellation of an
// already-confirmed booking.  It lives outside the transaction state
// machine: the booking record transitions CONFIRMED -> CANCELLED, which
// removes its resources from the conflict set and frees them for
// resale.  Refund handling is the caller's concern.
func (m *Manager) CancelConfirmedBooking(ctx context.Context, bookingID, ownerID string) error {
    b, err := m.records.GetBooking(ctx, bookingID)
    if err != nil {
        return err
    }
    if b.OwnerID != ownerID {
        return ErrUnauthorized
    }
    if b.Status != model.BookingConfirmed {
        return ErrInvalidState
    }
    if err := m.records.UpdateBookingStatus(ctx, bookingID, model.BookingCancelled); err != nil {
        // A concurrent cancel can win between the status check above and
        // the guarded update.
        if errors.Is(err, repository.ErrInvalidTransition) {
            return ErrInvalidState
        }
        return &BackingStoreError{Op: "booking cancel", Err: err}
    }
    return nil
}

func (m *Manager) lookup(txID, ownerID string) (*managedTx, error) {
    m.mu.Lock()
    mt, ok := m.txs[txID]
    m.mu.Unlock()
    if !ok {
        return nil, ErrUnknownTransaction
    }
    if mt.tx.OwnerID != ownerID {
        return nil, ErrUnauthorized
    }
    return mt, nil
}

func dedupe(ids []string) []string {
    out := make([]string, 0, len(ids))
    seen := make(map[string]struct{}, len(ids))
    for _, id := range ids {
        if id == "" {
            continue
        }
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    return out
}
