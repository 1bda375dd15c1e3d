package auth

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLockoutFailureBelowThreshold(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	policy := NewLockoutPolicy(5, 15*time.Minute).WithNow(fixedClock(now))

	acct := &Account{FailedLoginAttempts: 3}
	state := policy.Failure(acct)

	if state.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", state.Attempts)
	}
	if state.LockedUntil != nil {
		t.Fatalf("unexpected lock below threshold: %v", state.LockedUntil)
	}
}

func TestLockoutFailureAtThresholdOpensWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	policy := NewLockoutPolicy(5, 15*time.Minute).WithNow(fixedClock(now))

	acct := &Account{FailedLoginAttempts: 4}
	state := policy.Failure(acct)

	if state.Attempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", state.Attempts)
	}
	if state.LockedUntil == nil {
		t.Fatalf("expected lock window to open")
	}
	if want := now.Add(15 * time.Minute); !state.LockedUntil.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, state.LockedUntil)
	}
}

func TestLockoutLockedPreCheck(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	policy := NewLockoutPolicy(5, 15*time.Minute).WithNow(fixedClock(now))

	until := now.Add(10 * time.Minute)
	locked := &Account{FailedLoginAttempts: 5, LockedUntil: &until}
	if !policy.Locked(locked) {
		t.Fatalf("expected account to be locked inside the window")
	}

	expired := now.Add(-time.Second)
	stale := &Account{FailedLoginAttempts: 5, LockedUntil: &expired}
	if policy.Locked(stale) {
		t.Fatalf("expected expired window to unlock the account")
	}
	if policy.Locked(&Account{}) {
		t.Fatalf("expected unlocked account to pass")
	}
}

func TestLockoutSuccessResets(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	policy := NewLockoutPolicy(5, 15*time.Minute).WithNow(fixedClock(now))

	until := now.Add(-time.Minute)
	acct := &Account{FailedLoginAttempts: 4, LockedUntil: &until}
	state := policy.Success(acct)

	if state.Attempts != 0 {
		t.Fatalf("expected counter reset, got %d", state.Attempts)
	}
	if state.LockedUntil != nil {
		t.Fatalf("expected lock cleared, got %v", state.LockedUntil)
	}
	if state.LastLoginAt == nil || !state.LastLoginAt.Equal(now) {
		t.Fatalf("expected last login stamped at %v, got %v", now, state.LastLoginAt)
	}
}

func TestLockoutDefaultsApplied(t *testing.T) {
	policy := NewLockoutPolicy(0, 0)
	if policy.Threshold != DefaultLockoutThreshold {
		t.Fatalf("expected default threshold, got %d", policy.Threshold)
	}
	if policy.LockFor != DefaultLockoutDuration {
		t.Fatalf("expected default duration, got %v", policy.LockFor)
	}
}
