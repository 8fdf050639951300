package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps identities in process memory. Used by tests and for
// local development without Postgres. The single mutex makes the lockout
// updates atomic per store, which is stricter than required.
type MemoryStore struct {
	mu         sync.Mutex
	byID       map[string]*Identity
	emailIndex map[string]string
	userIndex  map[string]string
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Identity),
		emailIndex: make(map[string]string),
		userIndex:  make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, identity *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(identity.Email)
	username := strings.ToLower(identity.Username)
	if _, exists := m.emailIndex[email]; exists {
		return ErrDuplicateIdentity
	}
	if _, exists := m.userIndex[username]; exists {
		return ErrDuplicateIdentity
	}
	clone := cloneIdentity(identity)
	m.byID[identity.ID] = clone
	m.emailIndex[email] = identity.ID
	m.userIndex[username] = identity.ID
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, id string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneIdentity(identity), nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneIdentity(m.byID[id]), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Identity, 0, len(m.byID))
	for _, identity := range m.byID {
		out = append(out, cloneIdentity(identity))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) RecordFailure(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (int, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.byID[id]
	if !ok {
		return 0, nil, ErrNotFound
	}
	if identity.LockUntil != nil && !identity.LockUntil.After(now) {
		// Expired lock: this failure opens a fresh attempt window.
		identity.LoginAttempts = 1
		identity.LockUntil = nil
	} else {
		identity.LoginAttempts++
		if identity.LockUntil == nil && identity.LoginAttempts >= threshold {
			until := now.Add(lockFor)
			identity.LockUntil = &until
		}
	}
	identity.UpdatedAt = now

	var lockUntil *time.Time
	if identity.LockUntil != nil {
		v := *identity.LockUntil
		lockUntil = &v
	}
	return identity.LoginAttempts, lockUntil, nil
}

func (m *MemoryStore) RecordSuccess(ctx context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	identity.LoginAttempts = 0
	identity.LockUntil = nil
	last := now
	identity.LastLogin = &last
	identity.UpdatedAt = now
	return nil
}

// SetStatus flips an identity's status. Profile management proper is out
// of scope; this exists so deactivation takes effect in tests and dev.
func (m *MemoryStore) SetStatus(id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	identity.Status = status
	return nil
}

func cloneIdentity(src *Identity) *Identity {
	clone := *src
	clone.Grants = cloneGrants(src.Grants)
	if src.LockUntil != nil {
		v := *src.LockUntil
		clone.LockUntil = &v
	}
	if src.LastLogin != nil {
		v := *src.LastLogin
		clone.LastLogin = &v
	}
	return &clone
}
