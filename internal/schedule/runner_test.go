package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ztfalerts/internal/common/cache"
	"ztfalerts/internal/testutil"

	"github.com/benbjohnson/clock"
)

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (l *fakeLease) Key() string { return l.key }

func (l *fakeLease) Unlock(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	l.locker.unlocks++
	return nil
}

type fakeLocker struct {
	mu      sync.Mutex
	held    map[string]bool
	unlocks int
	err     error
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (cache.Lease, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held[key] {
		return nil, false, nil
	}
	f.held[key] = true
	return &fakeLease{locker: f, key: key}, true, nil
}

func (f *fakeLocker) Close() error { return nil }

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job run")
	}
}

func TestRunner_RunsImmediatelyThenEveryInterval(t *testing.T) {
	mock := clock.NewMock()
	runs := make(chan struct{}, 10)
	failNext := true
	job := func(ctx context.Context) error {
		runs <- struct{}{}
		if failNext {
			failNext = false
			return errors.New("transient")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	runner := &Runner{Name: "sync", Interval: 2 * time.Hour, Clock: mock}
	go func() { done <- runner.Run(ctx, job) }()

	waitFor(t, runs)
	mock.Add(2 * time.Hour)
	waitFor(t, runs)
	mock.Add(2 * time.Hour)
	waitFor(t, runs)

	cancel()
	select {
	case err := <-done:
		testutil.AssertNil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_DoesNotRunBeforeInterval(t *testing.T) {
	mock := clock.NewMock()
	runs := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &Runner{Name: "catalog", Interval: 6 * time.Hour, Clock: mock}
	go func() { _ = runner.Run(ctx, func(context.Context) error { runs <- struct{}{}; return nil }) }()

	waitFor(t, runs)
	mock.Add(time.Hour)
	select {
	case <-runs:
		t.Fatal("job ran before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunner_RunOnceSkipsWhenLockHeld(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"ztf:lock:sync": true}}
	runner := &Runner{Name: "sync", Interval: time.Hour, Clock: clock.NewMock(), Locker: locker, LockKey: "ztf:lock:sync"}

	called := false
	status := runner.RunOnce(context.Background(), func(context.Context) error { called = true; return nil })
	testutil.AssertEqual(t, status, statusSkipped)
	testutil.AssertFalse(t, called, "job must not run while the lock is held")
}

func TestRunner_RunOnceReleasesLock(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	runner := &Runner{Name: "sync", Interval: time.Hour, Clock: clock.NewMock(), Locker: locker, LockKey: "ztf:lock:sync"}

	status := runner.RunOnce(context.Background(), func(context.Context) error { return errors.New("boom") })
	testutil.AssertEqual(t, status, statusError)
	testutil.AssertEqual(t, locker.unlocks, 1)
	testutil.AssertFalse(t, locker.held["ztf:lock:sync"], "lock should be released after the run")

	locker.err = errors.New("redis down")
	status = runner.RunOnce(context.Background(), func(context.Context) error { return nil })
	testutil.AssertEqual(t, status, statusError)
}

func TestRunner_Validation(t *testing.T) {
	runner := &Runner{Name: "sync"}
	testutil.AssertNotNil(t, runner.Run(context.Background(), func(context.Context) error { return nil }))
	runner.Interval = time.Minute
	testutil.AssertNotNil(t, runner.Run(context.Background(), nil))
}
