package auth

import "time"

const (
	// DefaultLockoutThreshold is the number of consecutive failed logins
	// after which an account is locked.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is how long a locked account rejects logins.
	DefaultLockoutDuration = 15 * time.Minute

	// DefaultTokenTTL is the session token lifetime.
	DefaultTokenTTL = 8 * time.Hour
)

// Account is an identity record backed by the users table. Accounts are
// never physically deleted; DeletedAt marks soft deletion.
type Account struct {
	ID                  string
	Email               string
	PasswordHash        string
	FirstName           string
	LastName            string
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	GoogleID            string
	AvatarURL           string
	LastLoginAt         *time.Time
	DeletedAt           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SSOOnly reports whether the account was provisioned through an external
// identity provider and has no usable local password.
func (a *Account) SSOOnly() bool {
	return a.GoogleID != "" && a.PasswordHash == ""
}

// Role is a named capability group.
type Role struct {
	ID   string
	Name string
}

// RoleGrant is one row of the user_roles join. The superadmin marker lives
// on the grant, not the role: an account may hold superadmin through one
// grant while holding ordinary grants through others.
type RoleGrant struct {
	RoleID       string
	RoleName     string
	IsSuperAdmin bool
	AssignedBy   string
	CreatedAt    time.Time
}

// Permission is a named capability reachable only through roles.
type Permission struct {
	ID   string
	Name string
}

// Principal is the resolved, authenticated caller attached to a request
// after token validation.
type Principal struct {
	Account      *Account
	Roles        []Role
	IsSuperAdmin bool
	Permissions  []string
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// ExternalProfile is a verified identity-provider profile handed to the SSO
// flow. Verification (signature, audience) happens upstream in the Google
// verifier; the orchestrator trusts the fields as given.
type ExternalProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	AvatarURL     string
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal Principal
}
