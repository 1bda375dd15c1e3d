package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth core. The
// relational schema (users, roles, user_roles, role_permissions,
// permissions) is owned by the wider record-keeping service; this interface
// consumes it.
type Store interface {
	// FindByEmail returns the non-deleted account with the given
	// case-normalized email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByID returns the non-deleted account with the given id, or
	// ErrNotFound.
	FindByID(ctx context.Context, id string) (*Account, error)

	// FindForSSO returns the non-deleted account matching the external
	// identity id or, failing that, the email. Covers an existing local
	// account adopting SSO.
	FindForSSO(ctx context.Context, googleID, email string) (*Account, error)

	// CreateSSOAccount inserts a new account provisioned from an external
	// profile. The account carries an empty password hash.
	CreateSSOAccount(ctx context.Context, a *Account) error

	// LinkGoogle sets the external identity id on an existing account and
	// fills the avatar only when currently unset.
	LinkGoogle(ctx context.Context, accountID, googleID, avatarURL string) error

	// RecordLoginFailure applies the failure transition as one atomic
	// read-modify-write: increment the counter, open a lock window once
	// threshold is reached, and never increment while a lock is already in
	// force. Returns the resulting state.
	RecordLoginFailure(ctx context.Context, accountID string, threshold int, lockFor time.Duration) (LockoutState, error)

	// RecordLoginSuccess resets the counter, clears the lock and stamps
	// last_login_at.
	RecordLoginSuccess(ctx context.Context, accountID string) error

	// TouchLastLogin updates last_login_at only. Used by repeated SSO
	// logins, which must otherwise be side-effect-free.
	TouchLastLogin(ctx context.Context, accountID string) error

	// RoleGrants returns the user_roles rows for the account with role
	// names resolved.
	RoleGrants(ctx context.Context, accountID string) ([]RoleGrant, error)

	// PermissionsForAccount returns the permission names reachable through
	// the account's roles.
	PermissionsForAccount(ctx context.Context, accountID string) ([]string, error)

	// FindRoleByName resolves a role by name, or ErrNotFound.
	FindRoleByName(ctx context.Context, name string) (*Role, error)

	// AssignRole inserts a user_roles row. Duplicate (account, role) pairs
	// are a no-op.
	AssignRole(ctx context.Context, accountID, roleID, assignedBy string, superadmin bool) error
}
