package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgErrUniqueViolation = "23505"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store against the record-keeping service's PostgreSQL
// schema.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an existing connection pool.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

// OpenPG opens a pgx-backed pool with tuned defaults.
func OpenPG(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) DB() *sql.DB { return s.db }

const accountColumns = `
	id, email, coalesce(password_hash, ''), coalesce(first_name, ''),
	coalesce(last_name, ''), is_active, failed_login_attempts,
	account_locked_until, coalesce(google_id, ''), coalesce(avatar_url, ''),
	last_login_at, deleted_at, created_at, updated_at`

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.IsActive, &a.FailedLoginAttempts, &a.LockedUntil, &a.GoogleID,
		&a.AvatarURL, &a.LastLoginAt, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+accountColumns+`
		from users
		where lower(email) = $1 and deleted_at is null
	`, NormalizeEmail(email))
	return scanAccount(row)
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+accountColumns+`
		from users
		where id = $1 and deleted_at is null
	`, id)
	return scanAccount(row)
}

func (s *PGStore) FindForSSO(ctx context.Context, googleID, email string) (*Account, error) {
	// Prefer the external-identity match over the email match so a linked
	// account keeps resolving to itself after an email change.
	row := s.db.QueryRowContext(ctx, `
		select `+accountColumns+`
		from users
		where deleted_at is null and (google_id = $1 or lower(email) = $2)
		order by (google_id = $1) desc
		limit 1
	`, googleID, NormalizeEmail(email))
	return scanAccount(row)
}

func (s *PGStore) CreateSSOAccount(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, email, password_hash, first_name, last_name,
			is_active, google_id, avatar_url, last_login_at)
		values ($1, $2, '', $3, $4, $5, $6, nullif($7, ''), $8)
	`, a.ID, a.Email, a.FirstName, a.LastName, a.IsActive, a.GoogleID, a.AvatarURL, a.LastLoginAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return ErrConflict
	}
	return err
}

func (s *PGStore) LinkGoogle(ctx context.Context, accountID, googleID, avatarURL string) error {
	// The avatar is filled only when currently unset; an existing avatar is
	// never overwritten.
	_, err := s.db.ExecContext(ctx, `
		update users
		set google_id = $2,
		    avatar_url = case
		        when avatar_url is null or avatar_url = '' then nullif($3, '')
		        else avatar_url
		    end,
		    updated_at = now()
		where id = $1 and deleted_at is null
	`, accountID, googleID, avatarURL)
	return err
}

// RecordLoginFailure increments the counter in a single conditional UPDATE
// so concurrent failed attempts serialize in the store instead of losing
// updates. While a lock is in force the statement matches no row and the
// current state is read back unchanged.
func (s *PGStore) RecordLoginFailure(ctx context.Context, accountID string, threshold int, lockFor time.Duration) (LockoutState, error) {
	var state LockoutState
	err := s.db.QueryRowContext(ctx, `
		update users
		set failed_login_attempts = failed_login_attempts + 1,
		    account_locked_until = case
		        when failed_login_attempts + 1 >= $2
		            then now() + make_interval(secs => $3)
		        else account_locked_until
		    end,
		    updated_at = now()
		where id = $1
		  and deleted_at is null
		  and (account_locked_until is null or account_locked_until <= now())
		returning failed_login_attempts, account_locked_until
	`, accountID, threshold, lockFor.Seconds()).Scan(&state.Attempts, &state.LockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx, `
			select failed_login_attempts, account_locked_until
			from users
			where id = $1 and deleted_at is null
		`, accountID).Scan(&state.Attempts, &state.LockedUntil)
		if errors.Is(err, sql.ErrNoRows) {
			return LockoutState{}, ErrNotFound
		}
	}
	if err != nil {
		return LockoutState{}, err
	}
	return state, nil
}

func (s *PGStore) RecordLoginSuccess(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		update users
		set failed_login_attempts = 0,
		    account_locked_until = null,
		    last_login_at = now(),
		    updated_at = now()
		where id = $1 and deleted_at is null
	`, accountID)
	return err
}

func (s *PGStore) TouchLastLogin(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		update users set last_login_at = now(), updated_at = now()
		where id = $1 and deleted_at is null
	`, accountID)
	return err
}

func (s *PGStore) RoleGrants(ctx context.Context, accountID string) ([]RoleGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select ur.role_id, r.name, ur.is_superadmin, coalesce(ur.assigned_by, ''), ur.created_at
		from user_roles ur
		join roles r on r.id = ur.role_id
		where ur.user_id = $1
		order by ur.created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []RoleGrant
	for rows.Next() {
		var g RoleGrant
		if err := rows.Scan(&g.RoleID, &g.RoleName, &g.IsSuperAdmin, &g.AssignedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *PGStore) PermissionsForAccount(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct p.name
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		join user_roles ur on ur.role_id = rp.role_id
		where ur.user_id = $1
		order by p.name
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

func (s *PGStore) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	var role Role
	err := s.db.QueryRowContext(ctx,
		`select id, name from roles where name = $1`, name,
	).Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *PGStore) AssignRole(ctx context.Context, accountID, roleID, assignedBy string, superadmin bool) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_roles (user_id, role_id, is_superadmin, assigned_by, created_at)
		values ($1, $2, $3, $4, now())
		on conflict (user_id, role_id) do nothing
	`, accountID, roleID, superadmin, assignedBy)
	return err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
