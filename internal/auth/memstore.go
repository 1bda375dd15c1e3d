package auth

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore is a mutex-guarded in-memory Store. It backs local development
// when no database DSN is configured and doubles as the orchestrator test
// fixture. Its lockout transition mirrors the conditional update the
// Postgres adapter performs.
type MemStore struct {
	mu sync.RWMutex

	accounts map[string]*Account // by id
	grants   map[string][]RoleGrant
	roles    map[string]*Role // by name
	perms    map[string][]string

	now func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[string]*Account),
		grants:   make(map[string][]RoleGrant),
		roles:    make(map[string]*Role),
		perms:    make(map[string][]string),
		now:      time.Now,
	}
}

// WithNow overrides the store's time source. Test use only.
func (m *MemStore) WithNow(fn func() time.Time) *MemStore {
	if fn != nil {
		m.now = fn
	}
	return m
}

// PutAccount inserts or replaces an account. Seeding helper for dev mode
// and tests.
func (m *MemStore) PutAccount(a *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
}

// PutRole registers a role.
func (m *MemStore) PutRole(r *Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.roles[r.Name] = &cp
}

// PutPermissions sets the permission names for an account.
func (m *MemStore) PutPermissions(accountID string, names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perms[accountID] = append([]string(nil), names...)
}

// Account returns a copy of the stored account, ignoring soft deletion.
// Inspection helper for tests.
func (m *MemStore) Account(id string) (Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

func (m *MemStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	email = NormalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.DeletedAt == nil && NormalizeEmail(a.Email) == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) FindByID(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemStore) FindForSSO(ctx context.Context, googleID, email string) (*Account, error) {
	email = NormalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var byEmail *Account
	for _, a := range m.accounts {
		if a.DeletedAt != nil {
			continue
		}
		if googleID != "" && a.GoogleID == googleID {
			cp := *a
			return &cp, nil
		}
		if NormalizeEmail(a.Email) == email {
			byEmail = a
		}
	}
	if byEmail != nil {
		cp := *byEmail
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemStore) CreateSSOAccount(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if NormalizeEmail(existing.Email) == NormalizeEmail(a.Email) {
			return ErrConflict
		}
	}
	now := m.now().UTC()
	cp := *a
	cp.PasswordHash = ""
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.accounts[cp.ID] = &cp
	return nil
}

func (m *MemStore) LinkGoogle(ctx context.Context, accountID, googleID, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.DeletedAt != nil {
		return ErrNotFound
	}
	a.GoogleID = googleID
	if a.AvatarURL == "" {
		a.AvatarURL = avatarURL
	}
	a.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemStore) RecordLoginFailure(ctx context.Context, accountID string, threshold int, lockFor time.Duration) (LockoutState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.DeletedAt != nil {
		return LockoutState{}, ErrNotFound
	}
	now := m.now().UTC()
	// No increment while a lock is in force.
	if a.LockedUntil == nil || !a.LockedUntil.After(now) {
		a.FailedLoginAttempts++
		if a.FailedLoginAttempts >= threshold {
			until := now.Add(lockFor)
			a.LockedUntil = &until
		}
		a.UpdatedAt = now
	}
	return LockoutState{
		Attempts:    a.FailedLoginAttempts,
		LockedUntil: a.LockedUntil,
		LastLoginAt: a.LastLoginAt,
	}, nil
}

func (m *MemStore) RecordLoginSuccess(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.DeletedAt != nil {
		return ErrNotFound
	}
	now := m.now().UTC()
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.LastLoginAt = &now
	a.UpdatedAt = now
	return nil
}

func (m *MemStore) TouchLastLogin(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.DeletedAt != nil {
		return ErrNotFound
	}
	now := m.now().UTC()
	a.LastLoginAt = &now
	a.UpdatedAt = now
	return nil
}

func (m *MemStore) RoleGrants(ctx context.Context, accountID string) ([]RoleGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RoleGrant(nil), m.grants[accountID]...), nil
}

func (m *MemStore) PermissionsForAccount(ctx context.Context, accountID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.perms[accountID]...), nil
}

func (m *MemStore) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemStore) AssignRole(ctx context.Context, accountID, roleID, assignedBy string, superadmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.grants[accountID] {
		if g.RoleID == roleID {
			return nil
		}
	}
	var roleName string
	for _, r := range m.roles {
		if r.ID == roleID {
			roleName = r.Name
			break
		}
	}
	m.grants[accountID] = append(m.grants[accountID], RoleGrant{
		RoleID:       roleID,
		RoleName:     roleName,
		IsSuperAdmin: superadmin,
		AssignedBy:   assignedBy,
		CreatedAt:    m.now().UTC(),
	})
	return nil
}
