package core

import "errors"

// Error kinds. Every layer wraps one of these so callers can classify a
// failure with errors.Is.
var (
	ErrInvalidParam         = errors.New("invalid parameter")
	ErrTableNotFound        = errors.New("table not found")
	ErrKeyNotFound          = errors.New("key not found")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTransactionAbort     = errors.New("transaction aborted")
	ErrCapacityExceeded     = errors.New("table capacity exceeded")
	ErrConnectionFail       = errors.New("connection failure")
	ErrUnknown              = errors.New("unknown error")
)
