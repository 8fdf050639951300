package auth

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPGStore(db), mock
}

func TestPGCreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into identities").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_email_key"})

	err := store.Create(context.Background(), &Identity{
		ID:       "id-1",
		Username: "jane.doe",
		Email:    "jane@x.com",
		Role:     RoleDoctor,
		Status:   StatusActive,
	})
	require.ErrorIs(t, err, ErrDuplicateIdentity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCreateLowercasesEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`values \(\$1, \$2, lower\(\$3\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), &Identity{
		ID:       "id-1",
		Username: "jane.doe",
		Email:    "Jane@X.com",
		Role:     RoleDoctor,
		Status:   StatusActive,
		Grants:   DefaultGrants(RoleDoctor),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRecordFailureIncrements(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("update identities set").
		WithArgs("id-1", now, 5, now.Add(2*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"login_attempts", "lock_until"}).AddRow(2, nil))

	attempts, lockUntil, err := store.RecordFailure(context.Background(), "id-1", 5, 2*time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Nil(t, lockUntil)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRecordFailureLocks(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	until := now.Add(2 * time.Hour)

	mock.ExpectQuery("update identities set").
		WithArgs("id-1", now, 5, until).
		WillReturnRows(sqlmock.NewRows([]string{"login_attempts", "lock_until"}).AddRow(5, until))

	attempts, lockUntil, err := store.RecordFailure(context.Background(), "id-1", 5, 2*time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, 5, attempts)
	require.NotNil(t, lockUntil)
	require.Equal(t, until, *lockUntil)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRecordFailureMissingIdentity(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("update identities set").
		WillReturnRows(sqlmock.NewRows([]string{"login_attempts", "lock_until"}))

	_, _, err := store.RecordFailure(context.Background(), "gone", 5, 2*time.Hour, now)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRecordSuccess(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("update identities set").
		WithArgs("id-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.RecordSuccess(context.Background(), "id-1", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRecordSuccessMissingIdentity(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update identities set").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RecordSuccess(context.Background(), "gone", time.Now().UTC())
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "first_name", "last_name", "phone",
		"role", "status", "department", "position", "grants", "login_attempts",
		"lock_until", "last_login", "created_at", "updated_at",
	}).AddRow(
		"id-1", "jane.doe", "jane@x.com", "$2a$10$hash", "Jane", "Doe", "",
		"doctor", "active", "Cardiology", "Consultant",
		[]byte(`[{"module":"patients","actions":["read","update"]}]`),
		0, nil, nil, now, now,
	)
	mock.ExpectQuery("select .+ from identities where email").
		WithArgs("jane@x.com").
		WillReturnRows(rows)

	identity, err := store.FindByEmail(context.Background(), "jane@x.com")
	require.NoError(t, err)
	require.Equal(t, RoleDoctor, identity.Role)
	require.Equal(t, StatusActive, identity.Status)
	require.Len(t, identity.Grants, 1)
	require.True(t, identity.Grants[0].Allows(ActionRead))
	require.Nil(t, identity.LockUntil)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGFindMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .+ from identities where id").
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Find(context.Background(), "gone")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
