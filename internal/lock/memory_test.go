package lock

import (
    "context"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock so expiry behaviour can be
// tested without sleeping.
type fakeClock struct {
    mu sync.Mutex
    t  time.Time
}

func newFakeClock() *fakeClock {
    return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    c.t = c.t.Add(d)
    c.mu.Unlock()
}

func newTestStore() (*MemoryStore, *fakeClock) {
    s := NewMemoryStore()
    clk := newFakeClock()
    s.SetClock(clk.Now)
    return s, clk
}

func TestTryAcquireMutualExclusion(t *testing.T) {
    s, _ := newTestStore()
    ctx := context.Background()

    ok, err := s.TryAcquire(ctx, "showing-1", "seat1", "userA", time.Minute)
    require.NoError(t, err)
    assert.True(t, ok)

    ok, err = s.TryAcquire(ctx, "showing-1", "seat1", "userB", time.Minute)
    require.NoError(t, err)
    assert.False(t, ok, "second owner must not acquire a held resource")

    // Same resource id in a different scope is independent.
    ok, err = s.TryAcquire(ctx, "showing-2", "seat1", "userB", time.Minute)
    require.NoError(t, err)
    assert.True(t, ok)
}

func TestTryAcquireIdempotentRefresh(t *testing.T) {
    s, clk := newTestStore()
    ctx := context.Background()

    ok, err := s.TryAcquire(ctx, "showing-1", "seat1", "userA", 10*time.Second)
    require.NoError(t, err)
    require.True(t, ok)

    clk.Advance(5 * time.Second)
    ok, err = s.TryAcquire(ctx, "showing-1", "seat1", "userA", 10*time.Second)
    require.NoError(t, err)
    assert.True(t, ok, "self re-acquire must succeed")

    // 8s later the original expiry (t+10s) has passed but the refreshed
    // one (t+15s) has not.
    clk.Advance(8 * time.Second)
    locked, err := s.IsLocked(ctx, "showing-1", "seat1", "")
    require.NoError(t, err)
    assert.True(t, locked, "refresh must extend the expiry")
}

func TestExpiryReleases(t *testing.T) {
    s, clk := newTestStore()
    ctx := context.Background()

    ok, err := s.TryAcquire(ctx, "showing-1", "seat5", "userA", time.Second)
    require.NoError(t, err)
    require.True(t, ok)

    clk.Advance(1001 * time.Millisecond)

    locked, err := s.IsLocked(ctx, "showing-1", "seat5", "")
    require.NoError(t, err)
    assert.False(t, locked, "expired lock must read as absent")

    ok, err = s.TryAcquire(ctx, "showing-1", "seat5", "userB", time.Minute)
    require.NoError(t, err)
    assert.True(t, ok, "another owner must be able to claim an expired resource")
}

func TestIsLockedExcludingOwner(t *testing.T) {
    s, _ := newTestStore()
    ctx := context.Background()

    _, err := s.TryAcquire(ctx, "showing-1", "seat1", "userA", time.Minute)
    require.NoError(t, err)

    locked, err := s.IsLocked(ctx, "showing-1", "seat1", "userA")
    require.NoError(t, err)
    assert.False(t, locked, "own hold must not count as locked")

    locked, err = s.IsLocked(ctx, "showing-1", "seat1", "userB")
    require.NoError(t, err)
    assert.True(t, locked, "someone else's hold must count as locked")
}

func TestReleaseRequiresOwner(t *testing.T) {
    s, _ := newTestStore()
    ctx := context.Background()

    _, err := s.TryAcquire(ctx, "showing-1", "seat1", "userA", time.Minute)
    require.NoError(t, err)

    ok, err := s.Release(ctx, "showing-1", "seat1", "userB")
    require.NoError(t, err)
    assert.False(t, ok, "release by a non-owner must be a no-op")

    locked, err := s.IsLocked(ctx, "showing-1", "seat1", "")
    require.NoError(t, err)
    assert.True(t, locked)

    ok, err = s.Release(ctx, "showing-1", "seat1", "userA")
    require.NoError(t, err)
    assert.True(t, ok)

    locked, err = s.IsLocked(ctx, "showing-1", "seat1", "")
    require.NoError(t, err)
    assert.False(t, locked)
}

func TestTryAcquireBatchAllOrNothing(t *testing.T) {
    s, _ := newTestStore()
    ctx := context.Background()

    // seat7 is already held by another owner.
    ok, err := s.TryAcquire(ctx, "showing-1", "seat7", "userB", time.Minute)
    require.NoError(t, err)
    require.True(t, ok)

    ok, failed, err := s.TryAcquireBatch(ctx, "showing-1", []string{"seat6", "seat7"}, "userA", time.Minute)
    require.NoError(t, err)
    assert.False(t, ok)
    assert.Equal(t, []string{"seat7"}, failed)

    // seat6 must not be left locked by the failed batch.
    locked, err := s.IsLocked(ctx, "showing-1", "seat6", "")
    require.NoError(t, err)
    assert.False(t, locked, "failed batch must roll back every claim it took")
}

func TestTryAcquireBatchSuccess(t *testing.T) {
    s, _ := newTestStore()
    ctx := context.Background()

    ok, failed, err := s.TryAcquireBatch(ctx, "showing-1", []string{"seat1", "seat2", "seat3"}, "userA", time.Minute)
    require.NoError(t, err)
    assert.True(t, ok)
    assert.Empty(t, failed)

    for _, rid := range []string{"seat1", "seat2", "seat3"} {
        owner, held, err := s.Holder(ctx, "showing-1", rid)
        require.NoError(t, err)
        assert.True(t, held)
        assert.Equal(t, "userA", owner)
    }
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
    s, _ := newTestStore()
    ctx := context.Background()

    const contenders = 64
    var wins atomic.Int32
    var wg sync.WaitGroup
    start := make(chan struct{})
    for i := 0; i < contenders; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            <-start
            ok, err := s.TryAcquire(ctx, "showing-1", "seat1", ownerName(n), time.Minute)
            if err != nil {
                t.Errorf("unexpected error: %v", err)
                return
            }
            if ok {
                wins.Add(1)
            }
        }(i)
    }
    close(start)
    wg.Wait()

    assert.Equal(t, int32(1), wins.Load(), "exactly one owner may win the race")
}

func TestConcurrentBatchSingleWinner(t *testing.T) {
    s, _ := newTestStore()
    ctx := context.Background()

    const contenders = 32
    resources := []string{"seat1", "seat2", "seat3", "seat4"}
    var wins atomic.Int32
    var wg sync.WaitGroup
    start := make(chan struct{})
    for i := 0; i < contenders; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            <-start
            ok, _, err := s.TryAcquireBatch(ctx, "showing-1", resources, ownerName(n), time.Minute)
            if err != nil {
                t.Errorf("unexpected error: %v", err)
                return
            }
            if ok {
                wins.Add(1)
            }
        }(i)
    }
    close(start)
    wg.Wait()

    require.Equal(t, int32(1), wins.Load(), "exactly one batch may win")

    // Every resource must be held by the single winner; none may be
    // orphaned by a losing batch's rollback.
    winner := ""
    for _, rid := range resources {
        owner, held, err := s.Holder(ctx, "showing-1", rid)
        require.NoError(t, err)
        require.True(t, held)
        if winner == "" {
            winner = owner
        }
        assert.Equal(t, winner, owner, "all resources must belong to the same winner")
    }
}

func TestListScopeSkipsExpired(t *testing.T) {
    s, clk := newTestStore()
    ctx := context.Background()

    _, err := s.TryAcquire(ctx, "showing-1", "seat1", "userA", time.Second)
    require.NoError(t, err)
    _, err = s.TryAcquire(ctx, "showing-1", "seat2", "userB", time.Minute)
    require.NoError(t, err)
    _, err = s.TryAcquire(ctx, "showing-2", "seat1", "userC", time.Minute)
    require.NoError(t, err)

    clk.Advance(2 * time.Second)

    locks, err := s.ListScope(ctx, "showing-1")
    require.NoError(t, err)
    require.Len(t, locks, 1)
    assert.Equal(t, "seat2", locks[0].ResourceID)
    assert.Equal(t, "userB", locks[0].OwnerID)
}

func TestReaperSweep(t *testing.T) {
    s, clk := newTestStore()
    ctx := context.Background()

    _, err := s.TryAcquire(ctx, "showing-1", "seat1", "userA", time.Second)
    require.NoError(t, err)
    _, err = s.TryAcquire(ctx, "showing-1", "seat2", "userA", time.Hour)
    require.NoError(t, err)

    clk.Advance(2 * time.Second)
    s.sweep()

    total := 0
    for _, sh := range s.shards {
        sh.mu.Lock()
        total += len(sh.entries)
        sh.mu.Unlock()
    }
    assert.Equal(t, 1, total, "sweep must drop only expired entries")
}

func ownerName(n int) string {
    return "user-" + string(rune('A'+n%26)) + string(rune('0'+n/26))
}
