package auth

import "errors"

// Component errors. They are always returned wrapped in an *apperror.AppError
// whose kind decides the HTTP status; errors.Is matches both.
var (
	ErrSigningFailure       = errors.New("auth: signing failure")
	ErrInvalidCredential    = errors.New("auth: invalid credential")
	ErrMissingCredential    = errors.New("auth: missing credential")
	ErrUnknownPrincipal     = errors.New("auth: unknown principal")
	ErrProviderUnauthorized = errors.New("auth: provider rejected token")
	ErrProviderUnreachable  = errors.New("auth: provider unreachable")
)
