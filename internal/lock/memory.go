package lock

import (
    "context"
    "hash/fnv"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/booking-core/internal/model"
)

// shardCount is the number of mutex stripes.  Claims on unrelated
// resources land on different stripes and never serialize each other.
const shardCount = 32

type memoryEntry struct {
    ownerID    string
    acquiredAt time.Time
    expiresAt  time.Time
}

type memoryShard struct {
    mu      sync.Mutex
    entries map[string]memoryEntry
}

// MemoryStore implements Store with an in-process map guarded by striped
// mutexes.  Expired entries are treated as absent on every read and are
// additionally removed by an optional background reaper (see StartReaper).
// Suitable for single-instance deployments where this process is the only
// locking authority.
type MemoryStore struct {
    shards [shardCount]*memoryShard
    // now is the clock used for expiry decisions.  Tests inject a fake
    // clock here to exercise TTL behaviour without sleeping.
    now func() time.Time
}

// NewMemoryStore returns an empty in-memory lock store using the system
// clock.
func NewMemoryStore() *MemoryStore {
    s := &MemoryStore{now: time.Now}
    for i := range s.shards {
        s.shards[i] = &memoryShard{entries: make(map[string]memoryEntry)}
    }
    return s
}

// SetClock replaces the store's clock.  Intended for tests that need to
// advance time past a claim's expiry deterministically.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func lockKey(scopeID, resourceID string) string {
    // NUL separator keeps distinct (scope, resource) pairs from colliding
    // even when identifiers contain ':'.
    return scopeID + "\x00" + resourceID
}

func (s *MemoryStore) shard(key string) *memoryShard {
    h := fnv.New32a()
    h.Write([]byte(key))
    return s.shards[h.Sum32()%shardCount]
}

// TryAcquire implements Store.  The check-and-set sequence runs entirely
// under the shard mutex, which is what makes the claim atomic.
func (s *MemoryStore) TryAcquire(ctx context.Context, scopeID, resourceID, ownerID string, ttl time.Duration) (bool, error) {
    if err := ctx.Err(); err != nil {
        return false, err
    }
    if ttl <= 0 {
        ttl = DefaultTTL
    }
    key := lockKey(scopeID, resourceID)
    sh := s.shard(key)
    sh.mu.Lock()
    defer sh.mu.Unlock()

    now := s.now()
    if e, ok := sh.entries[key]; ok && now.Before(e.expiresAt) && e.ownerID != ownerID {
        return false, nil
    }
    // Free, expired, or re-acquired by the same owner: (re)claim it.
    sh.entries[key] = memoryEntry{
        ownerID:    ownerID,
        acquiredAt: now,
        expiresAt:  now.Add(ttl),
    }
    return true, nil
}

// TryAcquireBatch implements Store.  Resources are claimed in sorted
// order so that two batches racing over overlapping sets contend on the
// same resource first; on any failure every claim taken by this call is
// rolled back before returning.
func (s *MemoryStore) TryAcquireBatch(ctx context.Context, scopeID string, resourceIDs []string, ownerID string, ttl time.Duration) (bool, []string, error) {
    ordered := append([]string(nil), resourceIDs...)
    sort.Strings(ordered)

    acquired := make([]string, 0, len(ordered))
    for _, rid := range ordered {
        ok, err := s.TryAcquire(ctx, scopeID, rid, ownerID, ttl)
        if err != nil {
            s.rollback(ctx, scopeID, acquired, ownerID)
            return false, nil, err
        }
        if !ok {
            s.rollback(ctx, scopeID, acquired, ownerID)
            return false, []string{rid}, nil
        }
        acquired = append(acquired, rid)
    }
    return true, nil, nil
}

func (s *MemoryStore) rollback(ctx context.Context, scopeID string, resourceIDs []string, ownerID string) {
    for _, rid := range resourceIDs {
        _, _ = s.Release(ctx, scopeID, rid, ownerID)
    }
}

// Release implements Store.
func (s *MemoryStore) Release(ctx context.Context, scopeID, resourceID, ownerID string) (bool, error) {
    if err := ctx.Err(); err != nil {
        return false, err
    }
    key := lockKey(scopeID, resourceID)
    sh := s.shard(key)
    sh.mu.Lock()
    defer sh.mu.Unlock()

    e, ok := sh.entries[key]
    if !ok || e.ownerID != ownerID || !s.now().Before(e.expiresAt) {
        // Expired entries are dropped opportunistically even when the
        // owner does not match, so the map does not hoard dead claims.
        if ok && !s.now().Before(e.expiresAt) {
            delete(sh.entries, key)
        }
        return false, nil
    }
    delete(sh.entries, key)
    return true, nil
}

// ReleaseBatch implements Store.  Failures on individual resources are
// ignored; a hold that already expired is not an error at release time.
func (s *MemoryStore) ReleaseBatch(ctx context.Context, scopeID string, resourceIDs []string, ownerID string) error {
    for _, rid := range resourceIDs {
        if _, err := s.Release(ctx, scopeID, rid, ownerID); err != nil {
            return err
        }
    }
    return nil
}

// IsLocked implements Store.
func (s *MemoryStore) IsLocked(ctx context.Context, scopeID, resourceID, excludingOwnerID string) (bool, error) {
    if err := ctx.Err(); err != nil {
        return false, err
    }
    key := lockKey(scopeID, resourceID)
    sh := s.shard(key)
    sh.mu.Lock()
    defer sh.mu.Unlock()

    e, ok := sh.entries[key]
    if !ok || !s.now().Before(e.expiresAt) {
        return false, nil
    }
    if excludingOwnerID != "" && e.ownerID == excludingOwnerID {
        return false, nil
    }
    return true, nil
}

// Holder implements Store.
func (s *MemoryStore) Holder(ctx context.Context, scopeID, resourceID string) (string, bool, error) {
    if err := ctx.Err(); err != nil {
        return "", false, err
    }
    key := lockKey(scopeID, resourceID)
    sh := s.shard(key)
    sh.mu.Lock()
    defer sh.mu.Unlock()

    e, ok := sh.entries[key]
    if !ok || !s.now().Before(e.expiresAt) {
        return "", false, nil
    }
    return e.ownerID, true, nil
}

// ListScope implements Lister.  Only active claims are reported.
func (s *MemoryStore) ListScope(ctx context.Context, scopeID string) ([]model.Lock, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    prefix := scopeID + "\x00"
    var locks []model.Lock
    for _, sh := range s.shards {
        sh.mu.Lock()
        now := s.now()
        for key, e := range sh.entries {
            if len(key) > len(prefix) && key[:len(prefix)] == prefix && now.Before(e.expiresAt) {
                locks = append(locks, model.Lock{
                    ScopeID:    scopeID,
                    ResourceID: key[len(prefix):],
                    OwnerID:    e.ownerID,
                    AcquiredAt: e.acquiredAt,
                    ExpiresAt:  e.expiresAt,
                })
            }
        }
        sh.mu.Unlock()
    }
    sort.Slice(locks, func(i, j int) bool { return locks[i].ResourceID < locks[j].ResourceID })
    return locks, nil
}

// StartReaper launches a goroutine that periodically sweeps expired
// entries from the map until ctx is cancelled.  The sweep is an
// optimisation only; correctness never depends on it because every read
// already ignores expired entries.
func (s *MemoryStore) StartReaper(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        interval = time.Minute
    }
    go func() {
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-ctx.Done():
                return
            case <-ticker.C:
                s.sweep()
            }
        }
    }()
}

func (s *MemoryStore) sweep() {
    for _, sh := range s.shards {
        sh.mu.Lock()
        now := s.now()
        for key, e := range sh.entries {
            if !now.Before(e.expiresAt) {
                delete(sh.entries, key)
            }
        }
        sh.mu.Unlock()
    }
}
