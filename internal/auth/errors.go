package auth

import "errors"

// Authentication failures. ErrInvalidCredentials covers both an unknown
// email and a wrong password so responses never disclose which accounts
// exist.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountNotActive   = errors.New("auth: account is not active")
	ErrAccountLocked      = errors.New("auth: account is temporarily locked")
)

// Registration failures.
var (
	ErrDuplicateIdentity = errors.New("auth: identity already exists")
	ErrValidation        = errors.New("auth: invalid input")
)

// Authorization failures. All map to 401 at the HTTP layer except
// ErrInsufficientPermission (403); the distinct values exist for
// server-side diagnostics.
var (
	ErrNoToken                = errors.New("auth: missing token")
	ErrInvalidToken           = errors.New("auth: invalid token")
	ErrTokenExpired           = errors.New("auth: token expired")
	ErrTokenNoLongerValid     = errors.New("auth: token no longer valid")
	ErrInsufficientPermission = errors.New("auth: insufficient permission")
)

// ErrNotFound is returned by stores when an identity does not exist.
var ErrNotFound = errors.New("auth: not found")
