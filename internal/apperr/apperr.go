package apperr

import "errors"

// Sentinel errors for the service layer. Handlers translate these to HTTP
// statuses with errors.Is; services wrap them with context via fmt.Errorf.
var (
	ErrAuth         = errors.New("not logged in")
	ErrValidation   = errors.New("invalid request")
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition not met")
	ErrExternal     = errors.New("external service failure")
)
