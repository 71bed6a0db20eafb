package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/mkarel/authcore/kv"
)

func testGuard() (*LockoutGuard, *kv.Memory, *time.Time) {
	store := kv.NewMemory()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	guard := NewLockoutGuard(store, "", LockoutConfig{
		MaxFailures:     5,
		FailureWindow:   15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	})
	return guard, store, &now
}

func TestPrefixesIsolateGuards(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	cfg := LockoutConfig{
		MaxFailures:     2,
		FailureWindow:   15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}
	a := NewLockoutGuard(store, "a:", cfg)
	b := NewLockoutGuard(store, "b:", cfg)

	for i := 0; i < 2; i++ {
		if err := a.RecordFailure(ctx, "p"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	locked, err := a.IsLocked(ctx, "p")
	if err != nil || !locked {
		t.Fatalf("IsLocked(a) = %v, %v", locked, err)
	}

	// The same principal on the other prefix is untouched.
	locked, err = b.IsLocked(ctx, "p")
	if err != nil || locked {
		t.Fatalf("IsLocked(b) = %v, %v", locked, err)
	}
	count, err := b.FailureCount(ctx, "p")
	if err != nil || count != 0 {
		t.Fatalf("FailureCount(b) = %d, %v", count, err)
	}
}

func TestLockAtThreshold(t *testing.T) {
	ctx := context.Background()
	guard, _, _ := testGuard()

	for i := 0; i < 4; i++ {
		if err := guard.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure #%d: %v", i+1, err)
		}
		locked, err := guard.IsLocked(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("IsLocked: %v", err)
		}
		if locked {
			t.Fatalf("locked after %d failures, want threshold 5", i+1)
		}
	}

	if err := guard.RecordFailure(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RecordFailure #5: %v", err)
	}
	locked, err := guard.IsLocked(ctx, "alice@example.com")
	if err != nil || !locked {
		t.Fatalf("IsLocked after threshold = %v, %v", locked, err)
	}
}

func TestLockExpires(t *testing.T) {
	ctx := context.Background()
	guard, _, now := testGuard()

	for i := 0; i < 5; i++ {
		if err := guard.RecordFailure(ctx, "p"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	*now = now.Add(16 * time.Minute)

	locked, err := guard.IsLocked(ctx, "p")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Fatal("still locked after lockout duration elapsed")
	}

	count, err := guard.FailureCount(ctx, "p")
	if err != nil || count != 0 {
		t.Fatalf("FailureCount after window = %d, %v", count, err)
	}
}

func TestWindowExpiryResetsCount(t *testing.T) {
	ctx := context.Background()
	guard, _, now := testGuard()

	for i := 0; i < 3; i++ {
		if err := guard.RecordFailure(ctx, "p"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	*now = now.Add(16 * time.Minute)

	// A failure in a fresh window starts counting from one again.
	if err := guard.RecordFailure(ctx, "p"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	count, err := guard.FailureCount(ctx, "p")
	if err != nil || count != 1 {
		t.Fatalf("FailureCount in fresh window = %d, %v", count, err)
	}
}

func TestResetClearsCounterNotLock(t *testing.T) {
	ctx := context.Background()
	guard, _, _ := testGuard()

	for i := 0; i < 5; i++ {
		if err := guard.RecordFailure(ctx, "p"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if err := guard.ResetFailures(ctx, "p"); err != nil {
		t.Fatalf("ResetFailures: %v", err)
	}

	count, err := guard.FailureCount(ctx, "p")
	if err != nil || count != 0 {
		t.Fatalf("FailureCount after reset = %d, %v", count, err)
	}

	// An armed lock outlives the counter reset.
	locked, err := guard.IsLocked(ctx, "p")
	if err != nil || !locked {
		t.Fatalf("IsLocked after reset = %v, %v", locked, err)
	}
}

func TestPrincipalsAreIndependent(t *testing.T) {
	ctx := context.Background()
	guard, _, _ := testGuard()

	for i := 0; i < 5; i++ {
		if err := guard.RecordFailure(ctx, "victim"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	locked, err := guard.IsLocked(ctx, "bystander")
	if err != nil || locked {
		t.Fatalf("IsLocked(bystander) = %v, %v", locked, err)
	}
}
