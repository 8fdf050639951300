package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdminBypass(t *testing.T) {
	p := Principal{Identity: &Identity{Role: RoleAdmin, Status: StatusActive}}
	for _, m := range Modules {
		for _, a := range Actions {
			require.True(t, p.Allows(m, a), "admin denied %s/%s", m, a)
		}
	}
}

func TestAllowsMatchesGrantsExactly(t *testing.T) {
	p := Principal{Identity: &Identity{
		Role:   RoleDoctor,
		Grants: DefaultGrants(RoleDoctor),
	}}

	require.True(t, p.Allows(ModulePatients, ActionRead))
	require.True(t, p.Allows(ModulePatients, ActionUpdate))
	require.True(t, p.Allows(ModuleLab, ActionCreate))

	require.False(t, p.Allows(ModulePatients, ActionDelete))
	require.False(t, p.Allows(ModuleBilling, ActionRead))
	require.False(t, p.Allows(ModuleAdmin, ActionRead))
}

func TestAllowsNilIdentity(t *testing.T) {
	var p Principal
	require.False(t, p.Allows(ModulePatients, ActionRead))
	require.False(t, p.HasRole(RoleAdmin))
}

func TestHasRole(t *testing.T) {
	p := Principal{Identity: &Identity{Role: RoleNurse}}
	require.True(t, p.HasRole(RoleNurse))
	require.True(t, p.HasRole(RoleAdmin, RoleNurse))
	require.False(t, p.HasRole(RoleAdmin, RoleDoctor))
}

func TestResolveReloadsIdentity(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store, newFakeClock())
	registerDoctor(t, svc)

	session, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)

	principal, err := svc.Resolve(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, "jane@x.com", principal.Identity.Email)

	// Resolving twice is idempotent.
	again, err := svc.Resolve(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, principal.Identity.ID, again.Identity.ID)
}

func TestResolveDeactivatedIdentity(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store, newFakeClock())
	profile := registerDoctor(t, svc)

	session, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)

	// Token is still unexpired; the status change alone kills it.
	require.NoError(t, store.SetStatus(profile.ID, StatusSuspended))
	_, err = svc.Resolve(context.Background(), session.Token)
	require.ErrorIs(t, err, ErrTokenNoLongerValid)
}

func TestResolveVanishedIdentity(t *testing.T) {
	clk := newFakeClock()
	svc := newTestService(t, NewMemoryStore(), clk)
	registerDoctor(t, svc)

	session, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)

	// Same secret, empty store: the subject no longer exists.
	fresh := newTestService(t, NewMemoryStore(), clk)
	_, err = fresh.Resolve(context.Background(), session.Token)
	require.ErrorIs(t, err, ErrTokenNoLongerValid)
}

func TestAuthorize(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), newFakeClock())
	registerDoctor(t, svc)

	session, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), session.Token, ModulePatients, ActionRead)
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), session.Token, ModuleBilling, ActionDelete)
	require.ErrorIs(t, err, ErrInsufficientPermission)
}

func TestRequireRole(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), newFakeClock())
	registerDoctor(t, svc)

	session, err := svc.Authenticate(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.RequireRole(context.Background(), session.Token, RoleDoctor, RoleNurse)
	require.NoError(t, err)

	_, err = svc.RequireRole(context.Background(), session.Token, RoleAdmin)
	require.ErrorIs(t, err, ErrInsufficientPermission)
}

func TestDefaultGrantsReturnsCopy(t *testing.T) {
	grants := DefaultGrants(RoleDoctor)
	require.NotEmpty(t, grants)
	grants[0] = Grant{Module: ModuleAdmin, Actions: allActions}
	require.NotEqual(t, grants[0], DefaultGrants(RoleDoctor)[0])
}

func TestDefaultGrantsActionsNotAliased(t *testing.T) {
	grants := DefaultGrants(RoleDoctor)
	require.NotEmpty(t, grants[0].Actions)

	// In-place mutation of the action slice must not reach the table.
	original := grants[0].Actions[0]
	grants[0].Actions[0] = ActionDelete
	require.Equal(t, original, DefaultGrants(RoleDoctor)[0].Actions[0])
}

func TestEveryRoleHasGrants(t *testing.T) {
	for _, role := range Roles {
		require.NotEmpty(t, DefaultGrants(role), "role %s", role)
	}
}
