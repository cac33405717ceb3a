// errors/store_errors.go
package errors

import "errors"

var (
	// ErrStoreUnavailable marks a privilege, account or token store failure.
	// Callers must fail the request; it is never a "no privilege" answer.
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
)
