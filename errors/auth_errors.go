// errors/auth_errors.go
package errors

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDeviceAuthRequired  = errors.New("account requires device authentication")
	ErrAccountLockedOut    = errors.New("account locked out")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidLoginRequest = errors.New("invalid login request")
)

// IsLoginFailure reports whether err is one of the failures a login caller
// must only ever see as a generic rejection.
func IsLoginFailure(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrDeviceAuthRequired) ||
		errors.Is(err, ErrAccountLockedOut)
}
