package errors

import "errors"

var (
	ErrForbidden      = errors.New("forbidden")
	ErrTenantRequired = errors.New("tenant required")
	ErrInvalidGrant   = errors.New("invalid privilege grant")
)

var ErrPrincipalRequired = errors.New("principal required")
