package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, store Store, clk *fakeClock) *Service {
	t.Helper()
	svc, err := NewService(store,
		WithSigningSecret("unit-test-signing-secret"),
		WithClock(clk.Now),
	)
	require.NoError(t, err)
	return svc
}

func registerDoctor(t *testing.T, svc *Service) Profile {
	t.Helper()
	profile, err := svc.Register(context.Background(), Registration{
		Username:  "jane.doe",
		Email:     "jane@x.com",
		Password:  "secret1",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      RoleDoctor,
	})
	require.NoError(t, err)
	return profile
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(NewMemoryStore())
	require.Error(t, err)

	_, err = NewService(NewMemoryStore(), WithSigningSecret("   "))
	require.Error(t, err)

	_, err = NewService(nil, WithSigningSecret("s3cret"))
	require.Error(t, err)
}

func TestRegisterAssignsRoleDefaults(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store, newFakeClock())

	profile := registerDoctor(t, svc)

	require.NotEmpty(t, profile.ID)
	require.Equal(t, RoleDoctor, profile.Role)
	require.Equal(t, StatusActive, profile.Status)
	require.Equal(t, DefaultGrants(RoleDoctor), profile.Grants)

	stored, err := store.FindByEmail(context.Background(), "jane@x.com")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", stored.PasswordHash)
	require.NoError(t, VerifyPassword(stored.PasswordHash, "secret1"))
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), newFakeClock())
	base := Registration{
		Username:  "jane.doe",
		Email:     "jane@x.com",
		Password:  "secret1",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      RoleDoctor,
	}

	cases := map[string]func(r *Registration){
		"missing username": func(r *Registration) { r.Username = " " },
		"missing email":    func(r *Registration) { r.Email = "" },
		"bad email":        func(r *Registration) { r.Email = "jane.x.com" },
		"short password":   func(r *Registration) { r.Password = "12345" },
		"missing name":     func(r *Registration) { r.FirstName = "" },
		"unknown role":     func(r *Registration) { r.Role = "janitor" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			reg := base
			mutate(&reg)
			_, err := svc.Register(context.Background(), reg)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), newFakeClock())
	registerDoctor(t, svc)

	_, err := svc.Register(context.Background(), Registration{
		Username:  "jane.other",
		Email:     "JANE@X.COM",
		Password:  "secret1",
		FirstName: "Jane",
		LastName:  "Other",
		Role:      RoleNurse,
	})
	require.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestAuthenticateIssuesSession(t *testing.T) {
	clk := newFakeClock()
	svc := newTestService(t, NewMemoryStore(), clk)
	registerDoctor(t, svc)

	session, err := svc.Authenticate(context.Background(), "Jane@X.com ", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, clk.Now().Add(defaultTokenTTL), session.ExpiresAt)
	require.Equal(t, "jane@x.com", session.Profile.Email)
	require.NotNil(t, session.Profile.LastLogin)
	require.Equal(t, clk.Now(), *session.Profile.LastLogin)
}

func TestAuthenticateRejectsUnknownAndWrongAlike(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), newFakeClock())
	registerDoctor(t, svc)

	_, errUnknown := svc.Authenticate(context.Background(), "nobody@x.com", "secret1")
	_, errWrong := svc.Authenticate(context.Background(), "jane@x.com", "not-it")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.Equal(t, errUnknown, errWrong)
}

func TestAuthenticateEmptyInput(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), newFakeClock())

	_, err := svc.Authenticate(context.Background(), "", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "jane@x.com", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateStatusGate(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store, newFakeClock())
	profile := registerDoctor(t, svc)

	for _, status := range []Status{StatusInactive, StatusSuspended, StatusTerminated} {
		require.NoError(t, store.SetStatus(profile.ID, status))
		_, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
		require.ErrorIs(t, err, ErrAccountNotActive, "status %s", status)
	}
}

func TestLockoutAfterThreshold(t *testing.T) {
	store := NewMemoryStore()
	clk := newFakeClock()
	svc := newTestService(t, store, clk)
	profile := registerDoctor(t, svc)

	for i := 0; i < defaultLockThreshold; i++ {
		_, err := svc.Authenticate(context.Background(), "jane@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	stored, err := store.Find(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, defaultLockThreshold, stored.LoginAttempts)
	require.NotNil(t, stored.LockUntil)
	require.Equal(t, clk.Now().Add(defaultLockDuration), *stored.LockUntil)

	// Correct password changes nothing while the lock holds.
	_, err = svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestExpiredLockResetsCounter(t *testing.T) {
	store := NewMemoryStore()
	clk := newFakeClock()
	svc := newTestService(t, store, clk)
	profile := registerDoctor(t, svc)

	for i := 0; i < defaultLockThreshold; i++ {
		_, _ = svc.Authenticate(context.Background(), "jane@x.com", "wrong")
	}
	clk.Advance(defaultLockDuration + time.Minute)

	// First failure after expiry opens a fresh window at attempt 1.
	_, err := svc.Authenticate(context.Background(), "jane@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	stored, err := store.Find(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.LoginAttempts)
	require.Nil(t, stored.LockUntil)
}

func TestSuccessResetsCounters(t *testing.T) {
	store := NewMemoryStore()
	clk := newFakeClock()
	svc := newTestService(t, store, clk)
	profile := registerDoctor(t, svc)

	for i := 0; i < defaultLockThreshold-1; i++ {
		_, _ = svc.Authenticate(context.Background(), "jane@x.com", "wrong")
	}
	_, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)

	stored, err := store.Find(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.LoginAttempts)
	require.Nil(t, stored.LockUntil)
	require.NotNil(t, stored.LastLogin)
}

func TestLoginAfterLockExpiry(t *testing.T) {
	store := NewMemoryStore()
	clk := newFakeClock()
	svc := newTestService(t, store, clk)
	registerDoctor(t, svc)

	for i := 0; i < defaultLockThreshold; i++ {
		_, _ = svc.Authenticate(context.Background(), "jane@x.com", "wrong")
	}
	clk.Advance(defaultLockDuration + time.Minute)

	session, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
}

func TestIdentitiesProjection(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), newFakeClock())
	registerDoctor(t, svc)

	profiles, err := svc.Identities(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Equal(t, "jane@x.com", profiles[0].Email)
}
