package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spendwise/internal/logger"
	"spendwise/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func init() {
	logger.Init("test")
}

func TestMemoryLocker(t *testing.T) {
	t.Run("blocks_until_released", func(t *testing.T) {
		locker := NewMemoryLocker()
		release, err := locker.Acquire(context.Background(), "a")
		testutil.AssertNoError(t, err)

		acquired := make(chan struct{})
		go func() {
			r, err := locker.Acquire(context.Background(), "a")
			if err == nil {
				r()
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("second acquire should block while the key is held")
		case <-time.After(30 * time.Millisecond):
		}

		release()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second acquire should proceed after release")
		}
	})

	t.Run("times_out", func(t *testing.T) {
		locker := NewMemoryLocker()
		release, err := locker.Acquire(context.Background(), "a", "b")
		testutil.AssertNoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(ctx, "b")
		testutil.AssertAppError(t, err, "LOCK_TIMEOUT")
	})

	t.Run("release_is_idempotent", func(t *testing.T) {
		locker := NewMemoryLocker()
		release, err := locker.Acquire(context.Background(), "a")
		testutil.AssertNoError(t, err)
		release()
		release()

		release, err = locker.Acquire(context.Background(), "a")
		testutil.AssertNoError(t, err)
		release()
		if len(locker.slots) != 0 {
			t.Errorf("expected no slots left, got %d", len(locker.slots))
		}
	})

	t.Run("overlapping_sets_do_not_deadlock", func(t *testing.T) {
		locker := NewMemoryLocker()
		var wg sync.WaitGroup
		var done atomic.Int32
		for i := 0; i < 20; i++ {
			keys := []string{"x", "y"}
			if i%2 == 0 {
				keys = []string{"y", "x"}
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				release, err := locker.Acquire(ctx, keys...)
				if err != nil {
					return
				}
				done.Add(1)
				release()
			}()
		}
		wg.Wait()
		if done.Load() != 20 {
			t.Errorf("expected all 20 acquisitions to succeed, got %d", done.Load())
		}
	})
}

func setupRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client, time.Second, WithRetryInterval(5*time.Millisecond), WithKeyPrefix("test:")), mr
}

func TestRedisLocker(t *testing.T) {
	t.Run("acquire_and_release", func(t *testing.T) {
		locker, mr := setupRedisLocker(t)

		release, err := locker.Acquire(context.Background(), "user-1")
		testutil.AssertNoError(t, err)
		if !mr.Exists("test:user-1") {
			t.Fatal("expected lock key to exist")
		}
		if ttl := mr.TTL("test:user-1"); ttl <= 0 {
			t.Errorf("expected lock key to carry a TTL, got %v", ttl)
		}

		release()
		if mr.Exists("test:user-1") {
			t.Error("expected lock key to be removed on release")
		}
	})

	t.Run("contended_key_times_out", func(t *testing.T) {
		locker, _ := setupRedisLocker(t)

		release, err := locker.Acquire(context.Background(), "user-1")
		testutil.AssertNoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(ctx, "user-1")
		testutil.AssertAppError(t, err, "LOCK_TIMEOUT")
	})

	t.Run("partial_acquire_rolls_back", func(t *testing.T) {
		locker, mr := setupRedisLocker(t)

		release, err := locker.Acquire(context.Background(), "b")
		testutil.AssertNoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(ctx, "a", "b")
		testutil.AssertAppError(t, err, "LOCK_TIMEOUT")
		if mr.Exists("test:a") {
			t.Error("key a should be released after failing to take b")
		}
	})

	t.Run("release_keeps_foreign_token", func(t *testing.T) {
		locker, mr := setupRedisLocker(t)

		release, err := locker.Acquire(context.Background(), "user-1")
		testutil.AssertNoError(t, err)

		// Simulate expiry followed by another holder taking the key.
		mr.FastForward(2 * time.Second)
		testutil.AssertNoError(t, mr.Set("test:user-1", "someone-else"))

		release()
		got, err := mr.Get("test:user-1")
		testutil.AssertNoError(t, err)
		if got != "someone-else" {
			t.Errorf("expected foreign lock to survive, got %q", got)
		}
	})

	t.Run("waits_for_release", func(t *testing.T) {
		locker, _ := setupRedisLocker(t)

		release, err := locker.Acquire(context.Background(), "user-1")
		testutil.AssertNoError(t, err)

		go func() {
			time.Sleep(20 * time.Millisecond)
			release()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		second, err := locker.Acquire(ctx, "user-1")
		testutil.AssertNoError(t, err)
		second()
	})
}
