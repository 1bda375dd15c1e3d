package auth

import "time"

// LockoutPolicy computes lock/unlock transitions over an account's lockout
// fields. The transitions are pure; the caller persists the returned state.
type LockoutPolicy struct {
	Threshold int
	LockFor   time.Duration

	now func() time.Time
}

// LockoutState is the persisted outcome of a login attempt.
type LockoutState struct {
	Attempts    int
	LockedUntil *time.Time
	LastLoginAt *time.Time
}

// NewLockoutPolicy returns a policy with the given parameters, falling back
// to the defaults for non-positive values.
func NewLockoutPolicy(threshold int, lockFor time.Duration) LockoutPolicy {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if lockFor <= 0 {
		lockFor = DefaultLockoutDuration
	}
	return LockoutPolicy{Threshold: threshold, LockFor: lockFor, now: time.Now}
}

// WithNow returns a copy of the policy using fn as its time source.
func (p LockoutPolicy) WithNow(fn func() time.Time) LockoutPolicy {
	if fn != nil {
		p.now = fn
	}
	return p
}

func (p LockoutPolicy) clock() time.Time {
	if p.now == nil {
		return time.Now().UTC()
	}
	return p.now().UTC()
}

// Locked reports whether the account is inside its lock window. It runs
// before password verification so a locked account never reaches the
// verifier.
func (p LockoutPolicy) Locked(a *Account) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(p.clock())
}

// Failure increments the attempt counter and, once the threshold is
// reached, opens a lock window. Attempts inside an existing window must not
// reach this transition; the pre-check short-circuits them.
func (p LockoutPolicy) Failure(a *Account) LockoutState {
	state := LockoutState{
		Attempts:    a.FailedLoginAttempts + 1,
		LockedUntil: a.LockedUntil,
		LastLoginAt: a.LastLoginAt,
	}
	if state.Attempts >= p.Threshold {
		until := p.clock().Add(p.LockFor)
		state.LockedUntil = &until
	}
	return state
}

// Success resets the counter, clears any lock and stamps the login time.
func (p LockoutPolicy) Success(a *Account) LockoutState {
	now := p.clock()
	return LockoutState{Attempts: 0, LockedUntil: nil, LastLoginAt: &now}
}
