package lock

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/booking-core/internal/model"
)

// redisKeyPrefix namespaces all claim keys.  The full key shape is
// seatlock:{scope}:{resource}; the owning actor is stored in the value
// so that refresh and release can verify ownership atomically.
const redisKeyPrefix = "seatlock:"

// acquireScript claims the key when it is free or already owned by the
// caller.  A self-owned claim has its expiry extended (idempotent
// refresh).  Returns 1 on success, 0 when another owner holds the key.
var acquireScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == false then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 1
end
if v == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 1
end
return 0
`)

// acquireBatchScript claims every key or none.  The first pass collects
// keys held by a different owner; only when there are no conflicts does
// the second pass write anything, so the batch is indivisible with
// respect to every other acquire running against the same keys.
// Returns the (1-based) indexes of conflicting keys, empty on success.
var acquireBatchScript = redis.NewScript(`
local conflicts = {}
for i, key in ipairs(KEYS) do
	local v = redis.call('GET', key)
	if v and v ~= ARGV[1] then
		conflicts[#conflicts+1] = i
	end
end
if #conflicts > 0 then
	return conflicts
end
for i, key in ipairs(KEYS) do
	redis.call('SET', key, ARGV[1], 'PX', ARGV[2])
end
return conflicts
`)

// releaseScript deletes the key only when the caller owns it, so one
// actor can never drop another actor's hold.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore implements Store on top of a shared Redis instance, making
// it usable by multiple service replicas at once.  Atomicity of the
// check-and-set sequences maps onto Redis' single-threaded script
// execution; expiry maps onto native key TTLs, so expired claims vanish
// without any sweeper.
//
// The store fails closed: when Redis cannot be reached the error is
// surfaced (wrapped in ErrStoreUnavailable) and no claim is granted.
// Transient failures are retried once before giving up.
type RedisStore struct {
    client *redis.Client
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
    return &RedisStore{client: client}
}

func redisKey(scopeID, resourceID string) string {
    return fmt.Sprintf("%s%s:%s", redisKeyPrefix, scopeID, resourceID)
}

// retry runs fn and retries it once after a short pause when it fails
// with anything other than redis.Nil.  Only backing-store failures are
// ever retried; contention outcomes are returned by fn as values.
func retry(ctx context.Context, fn func() error) error {
    err := fn()
    if err == nil || errors.Is(err, redis.Nil) || ctx.Err() != nil {
        return err
    }
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-time.After(50 * time.Millisecond):
    }
    return fn()
}

func storeErr(err error) error {
    return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// TryAcquire implements Store.
func (s *RedisStore) TryAcquire(ctx context.Context, scopeID, resourceID, ownerID string, ttl time.Duration) (bool, error) {
    if ttl <= 0 {
        ttl = DefaultTTL
    }
    var res int
    err := retry(ctx, func() error {
        n, err := acquireScript.Run(ctx, s.client, []string{redisKey(scopeID, resourceID)}, ownerID, ttl.Milliseconds()).Int()
        if err != nil {
            return err
        }
        res = n
        return nil
    })
    if err != nil {
        return false, storeErr(err)
    }
    return res == 1, nil
}

// TryAcquireBatch implements Store.  The whole batch is evaluated in a
// single script invocation, so no rollback pass is ever needed here.
func (s *RedisStore) TryAcquireBatch(ctx context.Context, scopeID string, resourceIDs []string, ownerID string, ttl time.Duration) (bool, []string, error) {
    if len(resourceIDs) == 0 {
        return true, nil, nil
    }
    if ttl <= 0 {
        ttl = DefaultTTL
    }
    keys := make([]string, len(resourceIDs))
    for i, rid := range resourceIDs {
        keys[i] = redisKey(scopeID, rid)
    }
    var raw []interface{}
    err := retry(ctx, func() error {
        vals, err := acquireBatchScript.Run(ctx, s.client, keys, ownerID, ttl.Milliseconds()).Slice()
        if err != nil {
            return err
        }
        raw = vals
        return nil
    })
    if err != nil {
        return false, nil, storeErr(err)
    }
    if len(raw) == 0 {
        return true, nil, nil
    }
    failed := make([]string, 0, len(raw))
    for _, v := range raw {
        idx, ok := v.(int64)
        if !ok || idx < 1 || int(idx) > len(resourceIDs) {
            return false, nil, storeErr(fmt.Errorf("unexpected script reply %v", v))
        }
        failed = append(failed, resourceIDs[idx-1])
    }
    return false, failed, nil
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, scopeID, resourceID, ownerID string) (bool, error) {
    var res int
    err := retry(ctx, func() error {
        n, err := releaseScript.Run(ctx, s.client, []string{redisKey(scopeID, resourceID)}, ownerID).Int()
        if err != nil {
            return err
        }
        res = n
        return nil
    })
    if err != nil {
        return false, storeErr(err)
    }
    return res == 1, nil
}

// ReleaseBatch implements Store.  Each resource is released
// independently; missing or foreign claims are skipped.
func (s *RedisStore) ReleaseBatch(ctx context.Context, scopeID string, resourceIDs []string, ownerID string) error {
    for _, rid := range resourceIDs {
        if _, err := s.Release(ctx, scopeID, rid, ownerID); err != nil {
            return err
        }
    }
    return nil
}

// IsLocked implements Store.
func (s *RedisStore) IsLocked(ctx context.Context, scopeID, resourceID, excludingOwnerID string) (bool, error) {
    owner, ok, err := s.Holder(ctx, scopeID, resourceID)
    if err != nil {
        return false, err
    }
    if !ok {
        return false, nil
    }
    if excludingOwnerID != "" && owner == excludingOwnerID {
        return false, nil
    }
    return true, nil
}

// Holder implements Store.
func (s *RedisStore) Holder(ctx context.Context, scopeID, resourceID string) (string, bool, error) {
    var owner string
    var found bool
    err := retry(ctx, func() error {
        v, err := s.client.Get(ctx, redisKey(scopeID, resourceID)).Result()
        if errors.Is(err, redis.Nil) {
            found = false
            return nil
        }
        if err != nil {
            return err
        }
        owner, found = v, true
        return nil
    })
    if err != nil {
        return "", false, storeErr(err)
    }
    return owner, found, nil
}

// ListScope implements Lister by scanning the scope's key range.  SCAN
// is cursor-based and safe against concurrent writes; the listing is a
// diagnostic snapshot, not a consistency primitive.
func (s *RedisStore) ListScope(ctx context.Context, scopeID string) ([]model.Lock, error) {
    pattern := redisKeyPrefix + scopeID + ":*"
    prefix := redisKeyPrefix + scopeID + ":"
    var locks []model.Lock
    iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
    for iter.Next(ctx) {
        key := iter.Val()
        owner, err := s.client.Get(ctx, key).Result()
        if errors.Is(err, redis.Nil) {
            continue // expired between SCAN and GET
        }
        if err != nil {
            return nil, storeErr(err)
        }
        ttl, err := s.client.PTTL(ctx, key).Result()
        if err != nil {
            return nil, storeErr(err)
        }
        lk := model.Lock{
            ScopeID:    scopeID,
            ResourceID: key[len(prefix):],
            OwnerID:    owner,
        }
        if ttl > 0 {
            lk.ExpiresAt = time.Now().Add(ttl)
        }
        locks = append(locks, lk)
    }
    if err := iter.Err(); err != nil {
        return nil, storeErr(err)
    }
    return locks, nil
}
