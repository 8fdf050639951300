package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth core.
//
// RecordFailure and RecordSuccess must be atomic with respect to the
// lockout fields of a single identity: two concurrent failed attempts
// reading attempts=4 must end at 6, not 5. Implementations perform a
// single conditional update, not read-modify-write.
type Store interface {
	// Create inserts a new identity. A collision on email or username
	// returns ErrDuplicateIdentity.
	Create(ctx context.Context, identity *Identity) error

	// Find loads an identity by id; ErrNotFound if absent.
	Find(ctx context.Context, id string) (*Identity, error)

	// FindByEmail loads an identity by lower-cased email; ErrNotFound if
	// absent. Callers normalize case before lookup.
	FindByEmail(ctx context.Context, email string) (*Identity, error)

	// List returns all identities ordered by creation time.
	List(ctx context.Context) ([]*Identity, error)

	// RecordFailure registers a failed login attempt at time now. If a
	// previous lock has already expired the counter restarts at 1 and the
	// lock is cleared; otherwise the counter increments, and reaching
	// threshold while unlocked sets the lock to now+lockFor. Returns the
	// post-update counter and lock.
	RecordFailure(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (attempts int, lockUntil *time.Time, err error)

	// RecordSuccess clears the failure counter and lock unconditionally
	// and stamps last_login with now.
	RecordSuccess(ctx context.Context, id string, now time.Time) error
}
