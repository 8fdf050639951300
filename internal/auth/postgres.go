package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL. Lockout updates are single
// conditional statements so concurrent attempts against one identity
// never lose increments.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const identityColumns = `id, username, email, password_hash, first_name, last_name, phone,
	role, status, department, position, grants, login_attempts, lock_until, last_login,
	created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, identity *Identity) error {
	grants, err := json.Marshal(identity.Grants)
	if err != nil {
		return fmt.Errorf("marshal grants: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into identities (id, username, email, password_hash, first_name, last_name,
			phone, role, status, department, position, grants)
		values ($1, $2, lower($3), $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		identity.ID, identity.Username, identity.Email, identity.PasswordHash,
		identity.FirstName, identity.LastName, identity.Phone, string(identity.Role),
		string(identity.Status), identity.Department, identity.Position, grants,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from identities where id = $1`, id)
	return scanIdentity(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from identities where email = lower($1)`, email)
	return scanIdentity(row)
}

func (s *PGStore) List(ctx context.Context) ([]*Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+identityColumns+` from identities order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, identity)
	}
	return result, rows.Err()
}

// RecordFailure folds the whole lockout transition into one UPDATE. All
// set expressions see the pre-update row, so the counter transition and
// the lock decision are consistent even under concurrent attempts:
//   - expired lock: counter restarts at 1, lock cleared
//   - otherwise: counter increments; hitting the threshold while
//     unlocked sets lock_until
func (s *PGStore) RecordFailure(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (int, *time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
		update identities set
			login_attempts = case
				when lock_until is not null and lock_until <= $2 then 1
				else login_attempts + 1
			end,
			lock_until = case
				when lock_until is not null and lock_until <= $2 then null
				when lock_until is null and login_attempts + 1 >= $3 then $4
				else lock_until
			end,
			updated_at = $2
		where id = $1
		returning login_attempts, lock_until`,
		id, now, threshold, now.Add(lockFor),
	)

	var (
		attempts  int
		lockUntil sql.NullTime
	)
	if err := row.Scan(&attempts, &lockUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, err
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		return attempts, &t, nil
	}
	return attempts, nil, nil
}

func (s *PGStore) RecordSuccess(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update identities set
			login_attempts = 0,
			lock_until = null,
			last_login = $2,
			updated_at = $2
		where id = $1`,
		id, now,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*Identity, error) {
	var (
		identity  Identity
		role      string
		status    string
		grants    []byte
		lockUntil sql.NullTime
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&identity.ID, &identity.Username, &identity.Email, &identity.PasswordHash,
		&identity.FirstName, &identity.LastName, &identity.Phone,
		&role, &status, &identity.Department, &identity.Position,
		&grants, &identity.LoginAttempts, &lockUntil, &lastLogin,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	identity.Role = Role(role)
	identity.Status = Status(status)
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &identity.Grants); err != nil {
			return nil, fmt.Errorf("decode grants: %w", err)
		}
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		identity.LockUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		identity.LastLogin = &t
	}
	return &identity, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
