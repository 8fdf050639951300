package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carefront.org/internal/ids"
)

const (
	defaultIssuer         = "carefront"
	defaultTokenTTL       = 24 * time.Hour
	defaultLockThreshold  = 5
	defaultLockDuration   = 2 * time.Hour
	defaultMinPasswordLen = 6
)

// Service issues session tokens and evaluates access decisions. The
// signing secret is injected at construction; the service never reads
// ambient process state.
type Service struct {
	store Store
	now   func() time.Time

	secret         []byte
	issuer         string
	tokenTTL       time.Duration
	lockThreshold  int
	lockDuration   time.Duration
	minPasswordLen int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithSigningSecret sets the HS256 token signing secret. Required.
func WithSigningSecret(secret string) ServiceOption {
	return func(s *Service) error {
		if strings.TrimSpace(secret) == "" {
			return errors.New("auth: signing secret is empty")
		}
		s.secret = []byte(secret)
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithTokenTTL configures session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// WithLockThreshold sets how many consecutive failures trigger a lock.
func WithLockThreshold(n int) ServiceOption {
	return func(s *Service) error {
		if n > 0 {
			s.lockThreshold = n
		}
		return nil
	}
}

// WithLockDuration sets how long a triggered lock lasts.
func WithLockDuration(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d > 0 {
			s.lockDuration = d
		}
		return nil
	}
}

// WithMinPasswordLen sets the registration password length floor.
func WithMinPasswordLen(n int) ServiceOption {
	return func(s *Service) error {
		if n > 0 {
			s.minPasswordLen = n
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service. A signing secret is mandatory.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &Service{
		store:          store,
		now:            time.Now,
		issuer:         defaultIssuer,
		tokenTTL:       defaultTokenTTL,
		lockThreshold:  defaultLockThreshold,
		lockDuration:   defaultLockDuration,
		minPasswordLen: defaultMinPasswordLen,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if len(svc.secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	return svc, nil
}

// Session is an issued token with its expiry and the owner's profile.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Profile   Profile   `json:"user"`
}

// Authenticate validates credentials and issues a session token.
//
// Unknown email and wrong password both return ErrInvalidCredentials.
// A non-active status rejects the attempt before the password is even
// checked, as does an unexpired lock. Lockout mutations persist whether
// or not the overall call succeeds.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if identity.Status != StatusActive {
		return Session{}, ErrAccountNotActive
	}

	now := s.now().UTC()
	if identity.LockedAt(now) {
		return Session{}, ErrAccountLocked
	}

	if err := VerifyPassword(identity.PasswordHash, password); err != nil {
		if _, _, rerr := s.store.RecordFailure(ctx, identity.ID, s.lockThreshold, s.lockDuration, now); rerr != nil {
			return Session{}, rerr
		}
		return Session{}, ErrInvalidCredentials
	}

	if err := s.store.RecordSuccess(ctx, identity.ID, now); err != nil {
		return Session{}, err
	}
	identity.LoginAttempts = 0
	identity.LockUntil = nil
	identity.LastLogin = &now

	token, expiresAt, err := s.signToken(identity.ID, identity.Role, now)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, Profile: identity.Profile()}, nil
}

// Registration is the input for creating a new identity.
type Registration struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// Register creates an identity with the role's default grants and status
// active. The password is hashed before anything is stored.
func (s *Service) Register(ctx context.Context, reg Registration) (Profile, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)

	switch {
	case reg.Username == "":
		return Profile{}, fmt.Errorf("%w: username is required", ErrValidation)
	case reg.Email == "" || !strings.Contains(reg.Email, "@"):
		return Profile{}, fmt.Errorf("%w: valid email is required", ErrValidation)
	case len(reg.Password) < s.minPasswordLen:
		return Profile{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, s.minPasswordLen)
	case reg.FirstName == "" || reg.LastName == "":
		return Profile{}, fmt.Errorf("%w: first and last name are required", ErrValidation)
	case !reg.Role.Valid():
		return Profile{}, fmt.Errorf("%w: unknown role %q", ErrValidation, reg.Role)
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return Profile{}, err
	}

	now := s.now().UTC()
	identity := &Identity{
		ID:           ids.New(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Phone:        strings.TrimSpace(reg.Phone),
		Role:         reg.Role,
		Status:       StatusActive,
		Department:   strings.TrimSpace(reg.Department),
		Position:     strings.TrimSpace(reg.Position),
		Grants:       DefaultGrants(reg.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		return Profile{}, err
	}
	return identity.Profile(), nil
}

// Identities returns sanitized projections of every identity. Callers
// gate this behind the admin role.
func (s *Service) Identities(ctx context.Context) ([]Profile, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(list))
	for _, identity := range list {
		profiles = append(profiles, identity.Profile())
	}
	return profiles, nil
}
