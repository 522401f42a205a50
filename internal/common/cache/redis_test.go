package cache

import (
	"context"
	"testing"
	"time"

	"ztfalerts/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	locker, err := NewRedisLocker(RedisConfig{Addr: server.Addr()})
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	t.Cleanup(func() { _ = locker.Close() })
	return locker, server
}

func TestRedisLocker_ExclusiveUntilUnlock(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	lease, ok, err := locker.TryLock(ctx, "ztf:lock:sync", time.Minute)
	testutil.AssertNil(t, err)
	testutil.AssertTrue(t, ok, "first TryLock should succeed")
	testutil.AssertEqual(t, lease.Key(), "ztf:lock:sync")

	_, ok, err = locker.TryLock(ctx, "ztf:lock:sync", time.Minute)
	testutil.AssertNil(t, err)
	testutil.AssertFalse(t, ok, "second TryLock should fail while held")

	testutil.AssertNil(t, lease.Unlock(ctx))

	_, ok, err = locker.TryLock(ctx, "ztf:lock:sync", time.Minute)
	testutil.AssertNil(t, err)
	testutil.AssertTrue(t, ok, "TryLock should succeed after Unlock")
}

func TestRedisLocker_ExpiredLeaseDoesNotReleaseNewHolder(t *testing.T) {
	locker, server := newTestLocker(t)
	ctx := context.Background()

	stale, ok, err := locker.TryLock(ctx, "ztf:lock:catalog", time.Second)
	testutil.AssertNil(t, err)
	testutil.AssertTrue(t, ok, "first TryLock should succeed")

	server.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "ztf:lock:catalog", time.Minute)
	testutil.AssertNil(t, err)
	testutil.AssertTrue(t, ok, "lock should be free after ttl")

	testutil.AssertNil(t, stale.Unlock(ctx))
	testutil.AssertTrue(t, server.Exists("ztf:lock:catalog"), "stale unlock must keep the new holder's key")
}

func TestRedisLocker_Validation(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	_, _, err := locker.TryLock(ctx, "", time.Minute)
	testutil.AssertNotNil(t, err)
	_, _, err = locker.TryLock(ctx, "k", 0)
	testutil.AssertNotNil(t, err)

	_, err = NewRedisLocker(RedisConfig{})
	testutil.AssertNotNil(t, err)
	_, err = NewRedisLockerWithClient(nil)
	testutil.AssertNotNil(t, err)
}

func TestRedisLocker_WithClient(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	locker, err := NewRedisLockerWithClient(client)
	testutil.AssertNil(t, err)
	defer locker.Close()

	_, ok, err := locker.TryLock(context.Background(), "k", time.Minute)
	testutil.AssertNil(t, err)
	testutil.AssertTrue(t, ok, "TryLock should succeed")
}
